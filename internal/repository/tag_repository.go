package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alpr-service/internal/model"
)

type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) WithTx(tx *gorm.DB) *TagRepository {
	return &TagRepository{db: tx}
}

func (r *TagRepository) List(ctx context.Context) ([]model.Tag, error) {
	var tags []model.Tag
	err := r.db.WithContext(ctx).Order("name").Find(&tags).Error
	return tags, err
}

func (r *TagRepository) GetByName(ctx context.Context, name string) (*model.Tag, error) {
	var tag model.Tag
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &tag, nil
}

func (r *TagRepository) Create(ctx context.Context, tag *model.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

func (r *TagRepository) UpdateColor(ctx context.Context, name, color string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Tag{}).
		Where("name = ?", name).
		Update("color", color)
	return result.RowsAffected, result.Error
}

// DeleteByName removes the tag; plate links go with it via the FK cascade,
// but the links are deleted explicitly as well so sqlite-backed tests agree.
func (r *TagRepository) DeleteByName(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tag model.Tag
		if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
			return err
		}
		if err := tx.Where("tag_id = ?", tag.ID).Delete(&model.PlateTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&tag).Error
	})
}

func (r *TagRepository) AddToPlate(ctx context.Context, plateNumber string, tagID int64) error {
	link := model.PlateTag{PlateNumber: plateNumber, TagID: tagID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
}

func (r *TagRepository) RemoveFromPlate(ctx context.Context, plateNumber string, tagID int64) error {
	return r.db.WithContext(ctx).
		Where("plate_number = ? AND tag_id = ?", plateNumber, tagID).
		Delete(&model.PlateTag{}).Error
}

func (r *TagRepository) TagsForPlate(ctx context.Context, plateNumber string) ([]model.TagInfo, error) {
	var tags []model.TagInfo
	err := r.db.WithContext(ctx).
		Table("plate_tags").
		Select("tags.name, tags.color").
		Joins("JOIN tags ON plate_tags.tag_id = tags.id").
		Where("plate_tags.plate_number = ?", plateNumber).
		Order("tags.name").
		Scan(&tags).Error
	if tags == nil {
		tags = []model.TagInfo{}
	}
	return tags, err
}

// TagsByPlate loads the whole plate→tags mapping in one query, for the
// aggregation reader's merge step.
func (r *TagRepository) TagsByPlate(ctx context.Context) (map[string][]model.TagInfo, error) {
	type row struct {
		PlateNumber string
		Name        string
		Color       string
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("plate_tags").
		Select("plate_tags.plate_number, tags.name, tags.color").
		Joins("JOIN tags ON plate_tags.tag_id = tags.id").
		Order("plate_tags.plate_number, tags.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byPlate := make(map[string][]model.TagInfo)
	for _, rw := range rows {
		byPlate[rw.PlateNumber] = append(byPlate[rw.PlateNumber], model.TagInfo{Name: rw.Name, Color: rw.Color})
	}
	return byPlate, nil
}

func (r *TagRepository) DeleteLinksForPlates(ctx context.Context, plateNumbers []string) error {
	if len(plateNumbers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("plate_number IN ?", plateNumbers).
		Delete(&model.PlateTag{}).Error
}
