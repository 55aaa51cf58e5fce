package model

type Tag struct {
	ID    int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name  string `gorm:"type:varchar(50);not null;uniqueIndex" json:"name"`
	Color string `gorm:"type:varchar(7);not null;default:#808080" json:"color"`
}

func (Tag) TableName() string {
	return "tags"
}

// PlateTag links a plate number to a tag. Tags are owned by canonical
// plates; rows against a misread string are tolerated but not authoritative.
type PlateTag struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PlateNumber string `gorm:"column:plate_number;type:varchar(32);not null;uniqueIndex:uq_plate_tags_pair,priority:1" json:"plate_number"`
	TagID       int64  `gorm:"column:tag_id;not null;uniqueIndex:uq_plate_tags_pair,priority:2" json:"tag_id"`
}

func (PlateTag) TableName() string {
	return "plate_tags"
}

// TagInfo is the display shape of a tag attached to a plate.
type TagInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}
