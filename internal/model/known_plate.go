package model

import "time"

// KnownPlate layers user metadata onto a plate number. When
// ParentPlateNumber is set the row is a misread alias: reads stored under
// PlateNumber roll up into the parent for display and aggregation.
// Chains are forbidden: a parent must not itself be a misread.
type KnownPlate struct {
	PlateNumber       string    `gorm:"column:plate_number;primaryKey;type:varchar(32)" json:"plate_number"`
	Name              *string   `gorm:"type:varchar(100)" json:"name"`
	Notes             *string   `gorm:"type:text" json:"notes"`
	ParentPlateNumber *string   `gorm:"column:parent_plate_number;type:varchar(32);index" json:"parent_plate_number"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (KnownPlate) TableName() string {
	return "known_plates"
}

// IsMisread reports whether the row aliases another plate.
func (k KnownPlate) IsMisread() bool {
	return k.ParentPlateNumber != nil && *k.ParentPlateNumber != ""
}
