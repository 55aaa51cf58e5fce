package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alpr-service/internal/model"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) WithTx(tx *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: tx}
}

// GetEnabled returns the watch row for a plate if it exists and is enabled,
// else nil. Absence is the common case during ingestion.
func (r *NotificationRepository) GetEnabled(ctx context.Context, plateNumber string) (*model.PlateNotification, error) {
	var watch model.PlateNotification
	err := r.db.WithContext(ctx).
		Where("plate_number = ? AND enabled = ?", plateNumber, true).
		First(&watch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &watch, nil
}

func (r *NotificationRepository) Get(ctx context.Context, plateNumber string) (*model.PlateNotification, error) {
	var watch model.PlateNotification
	err := r.db.WithContext(ctx).Where("plate_number = ?", plateNumber).First(&watch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &watch, nil
}

func (r *NotificationRepository) List(ctx context.Context) ([]model.PlateNotification, error) {
	var watches []model.PlateNotification
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&watches).Error
	return watches, err
}

// Upsert creates a watch with the default priority, or re-enables an
// existing one.
func (r *NotificationRepository) Upsert(ctx context.Context, plateNumber string) (*model.PlateNotification, error) {
	watch := model.PlateNotification{
		PlateNumber: plateNumber,
		Enabled:     true,
		Priority:    1,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plate_number"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"enabled": true}),
		}).
		Create(&watch).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, plateNumber)
}

func (r *NotificationRepository) SetPriority(ctx context.Context, plateNumber string, priority int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PlateNotification{}).
		Where("plate_number = ?", plateNumber).
		Update("priority", priority)
	return result.RowsAffected, result.Error
}

func (r *NotificationRepository) SetEnabled(ctx context.Context, plateNumber string, enabled bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PlateNotification{}).
		Where("plate_number = ?", plateNumber).
		Update("enabled", enabled)
	return result.RowsAffected, result.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, plateNumber string) error {
	return r.db.WithContext(ctx).
		Where("plate_number = ?", plateNumber).
		Delete(&model.PlateNotification{}).Error
}
