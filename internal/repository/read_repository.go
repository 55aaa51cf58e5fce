package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alpr-service/internal/model"
)

type ReadRepository struct {
	db *gorm.DB
}

func NewReadRepository(db *gorm.DB) *ReadRepository {
	return &ReadRepository{db: db}
}

func (r *ReadRepository) WithTx(tx *gorm.DB) *ReadRepository {
	return &ReadRepository{db: tx}
}

// Insert appends a read. The (plate_number, timestamp) unique index resolves
// concurrent duplicates: inserted=false means the exact pair already existed.
func (r *ReadRepository) Insert(ctx context.Context, read *model.PlateRead) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plate_number"}, {Name: "timestamp"}},
			DoNothing: true,
		}).
		Create(read)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ReadRepository) GetByID(ctx context.Context, id int64) (*model.PlateRead, error) {
	var read model.PlateRead
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&read).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &read, nil
}

func (r *ReadRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PlateRead{}).Count(&count).Error
	return count, err
}

func (r *ReadRepository) CountByPlate(ctx context.Context, plateNumber string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PlateRead{}).
		Where("plate_number = ?", plateNumber).
		Count(&count).Error
	return count, err
}

// PruneOldest deletes every read ranked beyond keep when ordered newest
// first. Ties on timestamp break deterministically by id.
func (r *ReadRepository) PruneOldest(ctx context.Context, keep int) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		DELETE FROM plate_reads
		WHERE id NOT IN (
			SELECT id FROM plate_reads
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		)`, keep)
	return result.RowsAffected, result.Error
}

// ReadStats is the per-plate aggregate over stored reads.
type ReadStats struct {
	PlateNumber string
	Count       int64
	FirstSeen   time.Time
	LastSeen    time.Time
}

// storedTimeLayouts covers the textual timestamp forms the drivers hand
// back for expression columns: sqlite's stored format and the RFC 3339
// variants postgres values convert to.
var storedTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

func parseStoredTime(raw string) (time.Time, error) {
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized stored timestamp %q", raw)
}

// StatsByPlate returns count/min/max per plate string, keyed by plate.
// With no plates argument it covers the whole table.
//
// MIN/MAX over a timestamp column loses its declared type on sqlite, so
// the aggregate bounds are scanned as text and parsed.
func (r *ReadRepository) StatsByPlate(ctx context.Context, plates ...string) (map[string]ReadStats, error) {
	type row struct {
		PlateNumber string
		Count       int64
		FirstSeen   sql.NullString
		LastSeen    sql.NullString
	}

	query := r.db.WithContext(ctx).
		Model(&model.PlateRead{}).
		Select("plate_number, COUNT(*) AS count, MIN(timestamp) AS first_seen, MAX(timestamp) AS last_seen").
		Group("plate_number")
	if len(plates) > 0 {
		query = query.Where("plate_number IN ?", plates)
	}

	var rows []row
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := make(map[string]ReadStats, len(rows))
	for _, rw := range rows {
		firstSeen, err := parseStoredTime(rw.FirstSeen.String)
		if err != nil {
			return nil, err
		}
		lastSeen, err := parseStoredTime(rw.LastSeen.String)
		if err != nil {
			return nil, err
		}
		stats[rw.PlateNumber] = ReadStats{
			PlateNumber: rw.PlateNumber,
			Count:       rw.Count,
			FirstSeen:   firstSeen,
			LastSeen:    lastSeen,
		}
	}
	return stats, nil
}

func (r *ReadRepository) HistoryByPlate(ctx context.Context, plateNumber string) ([]model.PlateRead, error) {
	var reads []model.PlateRead
	err := r.db.WithContext(ctx).
		Where("plate_number = ?", plateNumber).
		Order("timestamp DESC").
		Find(&reads).Error
	return reads, err
}

func (r *ReadRepository) RecentByPlate(ctx context.Context, plateNumber string, limit int) ([]model.PlateRead, error) {
	var reads []model.PlateRead
	err := r.db.WithContext(ctx).
		Where("plate_number = ?", plateNumber).
		Order("timestamp DESC").
		Limit(limit).
		Find(&reads).Error
	return reads, err
}

func (r *ReadRepository) DeleteByID(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.PlateRead{})
	return result.RowsAffected, result.Error
}

func (r *ReadRepository) DeleteByPlates(ctx context.Context, plateNumbers []string) (int64, error) {
	if len(plateNumbers) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("plate_number IN ?", plateNumbers).
		Delete(&model.PlateRead{})
	return result.RowsAffected, result.Error
}

// RetargetOne reassigns a single read to another plate string.
func (r *ReadRepository) RetargetOne(ctx context.Context, id int64, newPlateNumber string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PlateRead{}).
		Where("id = ?", id).
		Update("plate_number", newPlateNumber)
	return result.RowsAffected, result.Error
}

// RetargetAll reassigns every read stored under oldPlateNumber.
func (r *ReadRepository) RetargetAll(ctx context.Context, oldPlateNumber, newPlateNumber string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PlateRead{}).
		Where("plate_number = ?", oldPlateNumber).
		Update("plate_number", newPlateNumber)
	return result.RowsAffected, result.Error
}

func (r *ReadRepository) DistinctPlateNumbers(ctx context.Context) ([]string, error) {
	var plates []string
	err := r.db.WithContext(ctx).
		Model(&model.PlateRead{}).
		Distinct("plate_number").
		Order("plate_number").
		Pluck("plate_number", &plates).Error
	return plates, err
}

func (r *ReadRepository) DistinctCameraNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&model.PlateRead{}).
		Distinct("camera_name").
		Where("camera_name IS NOT NULL").
		Order("camera_name").
		Pluck("camera_name", &names).Error
	return names, err
}

// ReadListFilter narrows the paginated reads listing. PlateNumbers, when
// non-nil, is a pre-resolved set (fuzzy search); PlateSubstring is a plain
// case-insensitive contains match.
type ReadListFilter struct {
	PlateNumbers   []string
	PlateSubstring string
	CameraName     string
	TagName        string
	DateFrom       *time.Time
	DateTo         *time.Time
}

func (r *ReadRepository) applyFilter(query *gorm.DB, filter ReadListFilter) *gorm.DB {
	if filter.PlateNumbers != nil {
		query = query.Where("plate_number IN ?", filter.PlateNumbers)
	} else if filter.PlateSubstring != "" {
		query = query.Where("LOWER(plate_number) LIKE ?", "%"+likePattern(filter.PlateSubstring)+"%")
	}
	if filter.CameraName != "" {
		query = query.Where("LOWER(camera_name) LIKE ?", "%"+likePattern(filter.CameraName)+"%")
	}
	if filter.TagName != "" {
		query = query.Where(`EXISTS (
			SELECT 1 FROM plate_tags pt
			JOIN tags t ON pt.tag_id = t.id
			WHERE pt.plate_number = plate_reads.plate_number AND t.name = ?
		)`, filter.TagName)
	}
	if filter.DateFrom != nil {
		query = query.Where("timestamp >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("timestamp < ?", *filter.DateTo)
	}
	return query
}

func (r *ReadRepository) CountFiltered(ctx context.Context, filter ReadListFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&model.PlateRead{}), filter)
	err := query.Count(&count).Error
	return count, err
}

func (r *ReadRepository) ListFiltered(ctx context.Context, filter ReadListFilter, limit, offset int) ([]model.PlateRead, error) {
	var reads []model.PlateRead
	query := r.applyFilter(r.db.WithContext(ctx).Model(&model.PlateRead{}), filter)
	err := query.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&reads).Error
	return reads, err
}

// CountSince and friends back the dashboard metrics.

func (r *ReadRepository) CountSince(ctx context.Context, since, until time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PlateRead{}).
		Where("timestamp > ? AND timestamp <= ?", since, until).
		Count(&count).Error
	return count, err
}

func (r *ReadRepository) UniquePlatesSince(ctx context.Context, since, until time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PlateRead{}).
		Where("timestamp > ? AND timestamp <= ?", since, until).
		Distinct("plate_number").
		Count(&count).Error
	return count, err
}

type PlateCount struct {
	PlateNumber string `json:"plate_number"`
	Count       int64  `json:"count"`
}

func (r *ReadRepository) TopPlatesSince(ctx context.Context, since, until time.Time, limit int) ([]PlateCount, error) {
	var rows []PlateCount
	err := r.db.WithContext(ctx).
		Model(&model.PlateRead{}).
		Select("plate_number, COUNT(*) AS count").
		Where("timestamp > ? AND timestamp <= ?", since, until).
		Group("plate_number").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
