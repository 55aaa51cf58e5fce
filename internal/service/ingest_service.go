package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"alpr-service/internal/broadcast"
	"alpr-service/internal/config"
	"alpr-service/internal/extract"
	"alpr-service/internal/model"
	"alpr-service/internal/repository"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
)

// pruneHysteresis delays pruning until the table is 10% over the limit so
// the bulk delete does not run on every insert.
const pruneHysteresis = 1.1

// Settings supplies the retention knobs, re-read per ingestion call.
type Settings interface {
	Retention() config.RetentionConfig
}

type IngestService struct {
	db               *gorm.DB
	plateRepo        *repository.PlateRepository
	readRepo         *repository.ReadRepository
	knownPlateRepo   *repository.KnownPlateRepository
	tagRepo          *repository.TagRepository
	notificationSvc  *NotificationService
	broadcaster      broadcast.Broadcaster
	settings         Settings
	log              zerolog.Logger
}

func NewIngestService(
	db *gorm.DB,
	plateRepo *repository.PlateRepository,
	readRepo *repository.ReadRepository,
	knownPlateRepo *repository.KnownPlateRepository,
	tagRepo *repository.TagRepository,
	notificationSvc *NotificationService,
	broadcaster broadcast.Broadcaster,
	settings Settings,
	log zerolog.Logger,
) *IngestService {
	return &IngestService{
		db:              db,
		plateRepo:       plateRepo,
		readRepo:        readRepo,
		knownPlateRepo:  knownPlateRepo,
		tagRepo:         tagRepo,
		notificationSvc: notificationSvc,
		broadcaster:     broadcaster,
		settings:        settings,
		log:             log,
	}
}

type IngestInput struct {
	Memo        string
	PlateNumber string
	Timestamp   *time.Time
	ImageData   *string
	CameraName  *string
}

type ProcessedPlate struct {
	Plate string `json:"plate"`
	ID    int64  `json:"id"`
}

type IngestResult struct {
	Processed  []ProcessedPlate `json:"processed"`
	Duplicates []string         `json:"duplicates"`
	Message    string           `json:"message"`
}

// ProcessEvent runs the full pipeline for one inbound camera event:
// extraction, per-candidate identity resolution, watch notification,
// occurrence insert and live broadcast. Candidates are isolated: one
// failing does not abort its siblings.
func (s *IngestService) ProcessEvent(ctx context.Context, input IngestInput) (*IngestResult, error) {
	eventID := uuid.New()

	s.pruneIfNeeded(ctx)

	candidates := s.extractCandidates(input)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no valid plates found in request", ErrInvalidInput)
	}

	timestamp := time.Now().UTC()
	if input.Timestamp != nil {
		timestamp = *input.Timestamp
	}

	result := &IngestResult{
		Processed:  []ProcessedPlate{},
		Duplicates: []string{},
	}
	var lastErr error

	for _, plate := range candidates {
		read, inserted, err := s.processCandidate(ctx, plate, timestamp, input)
		if err != nil {
			lastErr = err
			s.log.Error().Err(err).
				Str("event_id", eventID.String()).
				Str("plate", plate).
				Msg("candidate processing failed")
			continue
		}
		if inserted {
			result.Processed = append(result.Processed, ProcessedPlate{Plate: plate, ID: read.ID})
		} else {
			result.Duplicates = append(result.Duplicates, plate)
		}
	}

	if len(result.Processed) == 0 && len(result.Duplicates) == 0 && lastErr != nil {
		return nil, lastErr
	}

	result.Message = fmt.Sprintf("Processed %d plates, %d duplicates",
		len(result.Processed), len(result.Duplicates))
	return result, nil
}

func (s *IngestService) extractCandidates(input IngestInput) []string {
	if input.Memo != "" {
		return extract.FromMemo(input.Memo)
	}
	// The plain plate_number path skips the object-label filter: the caller
	// asserts it is already a plate.
	if plate := extract.NormalizePlate(input.PlateNumber); plate != "" {
		return []string{plate}
	}
	return nil
}

func (s *IngestService) processCandidate(ctx context.Context, plate string, timestamp time.Time, input IngestInput) (*model.PlateRead, bool, error) {
	canonical, err := s.knownPlateRepo.ResolveCanonical(ctx, plate)
	if err != nil {
		return nil, false, fmt.Errorf("resolve canonical identity: %w", err)
	}

	// Watch check fires before the store write and never blocks it.
	s.notificationSvc.CheckAndNotify(ctx, canonical, input.ImageData)

	read := &model.PlateRead{
		PlateNumber: plate,
		Timestamp:   timestamp,
		ImageData:   input.ImageData,
		CameraName:  input.CameraName,
	}

	var inserted bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.plateRepo.WithTx(tx).EnsureExists(ctx, plate, timestamp); err != nil {
			return fmt.Errorf("ensure plate row: %w", err)
		}
		var err error
		inserted, err = s.readRepo.WithTx(tx).Insert(ctx, read)
		if err != nil {
			return fmt.Errorf("insert read: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if inserted {
		s.broadcastNewRead(ctx, read, canonical)
	}

	return read, inserted, nil
}

// broadcastNewRead pushes the accepted read with refreshed rolled-up context
// to live viewers. Best-effort.
func (s *IngestService) broadcastNewRead(ctx context.Context, read *model.PlateRead, canonical string) {
	count, err := s.rolledUpCount(ctx, canonical)
	if err != nil {
		s.log.Warn().Err(err).Str("plate", canonical).Msg("occurrence count refresh failed")
	}

	var knownName *string
	if kp, err := s.knownPlateRepo.Get(ctx, canonical); err != nil {
		s.log.Warn().Err(err).Str("plate", canonical).Msg("known plate lookup failed")
	} else if kp != nil {
		knownName = kp.Name
	}

	tags, err := s.tagRepo.TagsForPlate(ctx, canonical)
	if err != nil {
		s.log.Warn().Err(err).Str("plate", canonical).Msg("tag lookup failed")
	}

	event := broadcast.NewReadEvent{
		EventID:         uuid.New().String(),
		ReadID:          read.ID,
		PlateNumber:     read.PlateNumber,
		CanonicalPlate:  canonical,
		Timestamp:       read.Timestamp,
		CameraName:      read.CameraName,
		ImageData:       read.ImageData,
		OccurrenceCount: count,
		KnownName:       knownName,
		Tags:            tags,
	}
	if err := s.broadcaster.NewRead(event); err != nil {
		s.log.Warn().Err(err).Str("plate", read.PlateNumber).Msg("live broadcast failed")
	}
}

// rolledUpCount sums the canonical plate's own reads with all of its current
// misreads' reads.
func (s *IngestService) rolledUpCount(ctx context.Context, canonical string) (int64, error) {
	plates := []string{canonical}
	misreads, err := s.knownPlateRepo.MisreadsOf(ctx, canonical)
	if err != nil {
		return 0, err
	}
	for _, m := range misreads {
		plates = append(plates, m.PlateNumber)
	}

	stats, err := s.readRepo.StatsByPlate(ctx, plates...)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, st := range stats {
		total += st.Count
	}
	return total, nil
}

// pruneIfNeeded trims the read log to the configured retention limit, with
// 10% hysteresis. Housekeeping only: failure is logged and ingestion of the
// current event continues.
func (s *IngestService) pruneIfNeeded(ctx context.Context) {
	retention := s.settings.Retention()
	if retention.MaxRecords <= 0 {
		return
	}

	count, err := s.readRepo.Count(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("retention count failed")
		return
	}

	if float64(count) <= float64(retention.MaxRecords)*pruneHysteresis {
		return
	}

	deleted, err := s.readRepo.PruneOldest(ctx, retention.MaxRecords)
	if err != nil {
		s.log.Warn().Err(err).Msg("retention prune failed")
		return
	}
	s.log.Info().Int64("deleted", deleted).Int("max_records", retention.MaxRecords).Msg("pruned old plate reads")
}
