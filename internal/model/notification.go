package model

import "time"

const (
	NotificationPriorityMin = -2
	NotificationPriorityMax = 2
)

// PlateNotification is a per-plate watch: when an enabled row matches an
// incoming canonical plate, a push notification is sent.
type PlateNotification struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlateNumber string    `gorm:"column:plate_number;type:varchar(32);not null;uniqueIndex" json:"plate_number"`
	Enabled     bool      `gorm:"not null;default:true" json:"enabled"`
	Priority    int       `gorm:"not null;default:1" json:"priority"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PlateNotification) TableName() string {
	return "plate_notifications"
}
