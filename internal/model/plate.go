package model

import "time"

// Plate is a canonical vehicle identity keyed by normalized plate text.
// Rows are created implicitly on the first accepted read.
type Plate struct {
	PlateNumber string    `gorm:"column:plate_number;primaryKey;type:varchar(32)" json:"plate_number"`
	Flagged     bool      `gorm:"not null;default:false" json:"flagged"`
	FirstSeenAt time.Time `gorm:"column:first_seen_at;not null" json:"first_seen_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Plate) TableName() string {
	return "plates"
}
