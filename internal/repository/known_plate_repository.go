package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alpr-service/internal/model"
)

// likePattern lowercases a search term and escapes LIKE metacharacters.
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(strings.ToLower(term))
}

type KnownPlateRepository struct {
	db *gorm.DB
}

func NewKnownPlateRepository(db *gorm.DB) *KnownPlateRepository {
	return &KnownPlateRepository{db: db}
}

func (r *KnownPlateRepository) WithTx(tx *gorm.DB) *KnownPlateRepository {
	return &KnownPlateRepository{db: tx}
}

// Get returns the known-plate row for a plate number, or nil when the plate
// is unknown. Unknown is the common case, not an error.
func (r *KnownPlateRepository) Get(ctx context.Context, plateNumber string) (*model.KnownPlate, error) {
	var kp model.KnownPlate
	err := r.db.WithContext(ctx).Where("plate_number = ?", plateNumber).First(&kp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &kp, nil
}

// ResolveCanonical maps a plate string to the identity used for aggregation:
// the parent when the string is a registered misread, otherwise itself.
// Read-only and safe to call concurrently.
func (r *KnownPlateRepository) ResolveCanonical(ctx context.Context, plateNumber string) (string, error) {
	kp, err := r.Get(ctx, plateNumber)
	if err != nil {
		return "", err
	}
	if kp != nil && kp.IsMisread() {
		return *kp.ParentPlateNumber, nil
	}
	return plateNumber, nil
}

// UpsertStandalone registers or updates a known plate with user metadata,
// clearing any misread linkage on the row itself.
func (r *KnownPlateRepository) UpsertStandalone(ctx context.Context, plateNumber string, name, notes *string) error {
	kp := model.KnownPlate{
		PlateNumber: plateNumber,
		Name:        name,
		Notes:       notes,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plate_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "notes", "parent_plate_number"}),
		}).
		Create(&kp).Error
}

// UpsertMisread attaches plateNumber as a misread alias of parent.
func (r *KnownPlateRepository) UpsertMisread(ctx context.Context, plateNumber, parent string) error {
	kp := model.KnownPlate{
		PlateNumber:       plateNumber,
		ParentPlateNumber: &parent,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plate_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"parent_plate_number"}),
		}).
		Create(&kp).Error
}

func (r *KnownPlateRepository) MisreadsOf(ctx context.Context, parent string) ([]model.KnownPlate, error) {
	var misreads []model.KnownPlate
	err := r.db.WithContext(ctx).
		Where("parent_plate_number = ?", parent).
		Order("plate_number").
		Find(&misreads).Error
	return misreads, err
}

func (r *KnownPlateRepository) ListAll(ctx context.Context) ([]model.KnownPlate, error) {
	var rows []model.KnownPlate
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *KnownPlateRepository) Delete(ctx context.Context, plateNumber string) error {
	return r.db.WithContext(ctx).
		Where("plate_number = ?", plateNumber).
		Delete(&model.KnownPlate{}).Error
}

func (r *KnownPlateRepository) DeleteByParent(ctx context.Context, parent string) error {
	return r.db.WithContext(ctx).
		Where("parent_plate_number = ?", parent).
		Delete(&model.KnownPlate{}).Error
}
