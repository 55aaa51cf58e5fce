package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alpr-service/internal/model"
)

type PlateRepository struct {
	db *gorm.DB
}

func NewPlateRepository(db *gorm.DB) *PlateRepository {
	return &PlateRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *PlateRepository) WithTx(tx *gorm.DB) *PlateRepository {
	return &PlateRepository{db: tx}
}

// EnsureExists creates the plate row if absent. The upsert is conflict-safe
// so concurrent callers for the same plate are fine.
func (r *PlateRepository) EnsureExists(ctx context.Context, plateNumber string, firstSeen time.Time) error {
	plate := model.Plate{
		PlateNumber: plateNumber,
		FirstSeenAt: firstSeen,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&plate).Error
}

func (r *PlateRepository) GetByPlateNumber(ctx context.Context, plateNumber string) (*model.Plate, error) {
	var plate model.Plate
	err := r.db.WithContext(ctx).Where("plate_number = ?", plateNumber).First(&plate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &plate, nil
}

func (r *PlateRepository) List(ctx context.Context) ([]model.Plate, error) {
	var plates []model.Plate
	err := r.db.WithContext(ctx).Order("plate_number").Find(&plates).Error
	return plates, err
}

func (r *PlateRepository) ListFlagged(ctx context.Context) ([]model.Plate, error) {
	var plates []model.Plate
	err := r.db.WithContext(ctx).
		Where("flagged = ?", true).
		Order("plate_number").
		Find(&plates).Error
	return plates, err
}

func (r *PlateRepository) SetFlagged(ctx context.Context, plateNumber string, flagged bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Plate{}).
		Where("plate_number = ?", plateNumber).
		Update("flagged", flagged)
	return result.RowsAffected, result.Error
}

func (r *PlateRepository) Delete(ctx context.Context, plateNumber string) error {
	return r.db.WithContext(ctx).
		Where("plate_number = ?", plateNumber).
		Delete(&model.Plate{}).Error
}

func (r *PlateRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Plate{}).Count(&count).Error
	return count, err
}
