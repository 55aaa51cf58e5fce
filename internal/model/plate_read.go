package model

import "time"

// PlateRead is one timestamped sighting of a plate string by a camera.
// The (plate_number, timestamp) pair is unique; a second insert with the
// same pair is a duplicate, not an error.
type PlateRead struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlateNumber string    `gorm:"column:plate_number;type:varchar(32);not null;index;uniqueIndex:uq_plate_reads_plate_ts,priority:1" json:"plate_number"`
	Timestamp   time.Time `gorm:"not null;index;uniqueIndex:uq_plate_reads_plate_ts,priority:2" json:"timestamp"`
	ImageData   *string   `gorm:"column:image_data;type:text" json:"image_data"`
	CameraName  *string   `gorm:"column:camera_name;type:varchar(100)" json:"camera_name"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PlateRead) TableName() string {
	return "plate_reads"
}
