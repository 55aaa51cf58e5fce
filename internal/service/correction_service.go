package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"alpr-service/internal/extract"
	"alpr-service/internal/repository"
)

type CorrectionService struct {
	db             *gorm.DB
	plateRepo      *repository.PlateRepository
	readRepo       *repository.ReadRepository
	knownPlateRepo *repository.KnownPlateRepository
	tagRepo        *repository.TagRepository
	log            zerolog.Logger
}

func NewCorrectionService(
	db *gorm.DB,
	plateRepo *repository.PlateRepository,
	readRepo *repository.ReadRepository,
	knownPlateRepo *repository.KnownPlateRepository,
	tagRepo *repository.TagRepository,
	log zerolog.Logger,
) *CorrectionService {
	return &CorrectionService{
		db:             db,
		plateRepo:      plateRepo,
		readRepo:       readRepo,
		knownPlateRepo: knownPlateRepo,
		tagRepo:        tagRepo,
		log:            log,
	}
}

// CorrectOne retargets a single read to another plate string. The new plate
// row is created if absent rather than renaming the old one: the misread
// string may be a real plate elsewhere and must keep its own history.
func (s *CorrectionService) CorrectOne(ctx context.Context, readID int64, newPlateNumber string) error {
	plate := extract.NormalizePlate(newPlateNumber)
	if plate == "" {
		return fmt.Errorf("%w: new plate number is required", ErrInvalidInput)
	}

	read, err := s.readRepo.GetByID(ctx, readID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: read %d", ErrNotFound, readID)
		}
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.readRepo.WithTx(tx).RetargetOne(ctx, readID, plate); err != nil {
			return err
		}
		return s.plateRepo.WithTx(tx).EnsureExists(ctx, plate, read.Timestamp)
	})
}

// CorrectAll retargets every read stored under oldPlateNumber. When
// removePrevious is set, the old plate is fully purged afterwards as a
// separate cascading step.
func (s *CorrectionService) CorrectAll(ctx context.Context, oldPlateNumber, newPlateNumber string, removePrevious bool) error {
	oldPlate := extract.NormalizePlate(oldPlateNumber)
	newPlate := extract.NormalizePlate(newPlateNumber)
	if oldPlate == "" || newPlate == "" {
		return fmt.Errorf("%w: both plate numbers are required", ErrInvalidInput)
	}
	if oldPlate == newPlate {
		return fmt.Errorf("%w: old and new plate numbers are identical", ErrInvalidInput)
	}

	if _, err := s.plateRepo.GetByPlateNumber(ctx, oldPlate); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: plate %s", ErrNotFound, oldPlate)
		}
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The new plate's first_seen must be the earliest moved read, so
		// the bound is taken inside the transaction before the retarget.
		firstSeen := time.Now().UTC()
		stats, err := s.readRepo.WithTx(tx).StatsByPlate(ctx, oldPlate)
		if err != nil {
			return err
		}
		if st, ok := stats[oldPlate]; ok {
			firstSeen = st.FirstSeen
		}
		if _, err := s.readRepo.WithTx(tx).RetargetAll(ctx, oldPlate, newPlate); err != nil {
			return err
		}
		return s.plateRepo.WithTx(tx).EnsureExists(ctx, newPlate, firstSeen)
	})
	if err != nil {
		return err
	}

	if removePrevious {
		return s.RemovePlate(ctx, oldPlate)
	}
	return nil
}

// SetMisreads replaces the misread set of a parent plate. Validation runs
// before any write; a conflict leaves the graph untouched.
func (s *CorrectionService) SetMisreads(ctx context.Context, parentPlateNumber string, name, notes *string, misreads []string) error {
	parent := extract.NormalizePlate(parentPlateNumber)
	if parent == "" {
		return fmt.Errorf("%w: plate number is required", ErrInvalidInput)
	}

	normalized := make([]string, 0, len(misreads))
	seen := map[string]struct{}{}
	for _, raw := range misreads {
		m := extract.NormalizePlate(raw)
		if m == "" {
			return fmt.Errorf("%w: empty misread plate number", ErrInvalidInput)
		}
		if m == parent {
			return fmt.Errorf("%w: %s cannot be a misread of itself", ErrInvalidInput, parent)
		}
		if _, dup := seen[m]; dup {
			return fmt.Errorf("%w: duplicate misread %s", ErrInvalidInput, m)
		}
		seen[m] = struct{}{}
		normalized = append(normalized, m)
	}

	// A plate that is itself a misread cannot acquire misreads: chains are
	// forbidden.
	parentInfo, err := s.knownPlateRepo.Get(ctx, parent)
	if err != nil {
		return err
	}
	if parentInfo != nil && parentInfo.IsMisread() {
		return fmt.Errorf("%w: %s is a misread of %s and cannot have misreads of its own",
			ErrConflict, parent, *parentInfo.ParentPlateNumber)
	}

	// Conflict check against the current known-plate universe, excluding the
	// parent's own pre-existing misread set (an edit may re-list them).
	for _, m := range normalized {
		existing, err := s.knownPlateRepo.Get(ctx, m)
		if err != nil {
			return err
		}
		if existing == nil {
			continue
		}
		if existing.IsMisread() && *existing.ParentPlateNumber == parent {
			continue
		}
		if existing.IsMisread() {
			return fmt.Errorf("%w: %s is already a misread of %s",
				ErrConflict, m, *existing.ParentPlateNumber)
		}
		return fmt.Errorf("%w: %s already exists as a known plate", ErrConflict, m)
	}

	previous, err := s.knownPlateRepo.MisreadsOf(ctx, parent)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		knownTx := s.knownPlateRepo.WithTx(tx)

		if err := knownTx.UpsertStandalone(ctx, parent, name, notes); err != nil {
			return err
		}

		for _, m := range normalized {
			if err := knownTx.UpsertMisread(ctx, m, parent); err != nil {
				return err
			}
		}

		// Detached misreads revert to independent unknown plates; their
		// historical reads stay put.
		for _, prev := range previous {
			if _, keep := seen[prev.PlateNumber]; keep {
				continue
			}
			if err := knownTx.Delete(ctx, prev.PlateNumber); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveKnownPlate strips "known" status from a plate and its misread
// aliases: tag links and known_plates rows go, read history stays.
func (s *CorrectionService) RemoveKnownPlate(ctx context.Context, parentPlateNumber string) error {
	parent := extract.NormalizePlate(parentPlateNumber)

	info, err := s.knownPlateRepo.Get(ctx, parent)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("%w: known plate %s", ErrNotFound, parent)
	}

	misreads, err := s.knownPlateRepo.MisreadsOf(ctx, parent)
	if err != nil {
		return err
	}

	plates := []string{parent}
	for _, m := range misreads {
		plates = append(plates, m.PlateNumber)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tagRepo.WithTx(tx).DeleteLinksForPlates(ctx, plates); err != nil {
			return err
		}
		knownTx := s.knownPlateRepo.WithTx(tx)
		if err := knownTx.DeleteByParent(ctx, parent); err != nil {
			return err
		}
		return knownTx.Delete(ctx, parent)
	})
}

// RemovePlate purges a plate: every read of the plate and of its current
// misread aliases, then the plates row. Destructive and irreversible.
// known_plates rows are left alone; readers tolerate the orphans.
func (s *CorrectionService) RemovePlate(ctx context.Context, plateNumber string) error {
	plate := extract.NormalizePlate(plateNumber)

	if _, err := s.plateRepo.GetByPlateNumber(ctx, plate); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: plate %s", ErrNotFound, plate)
		}
		return err
	}

	misreads, err := s.knownPlateRepo.MisreadsOf(ctx, plate)
	if err != nil {
		return err
	}

	plates := []string{plate}
	for _, m := range misreads {
		plates = append(plates, m.PlateNumber)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.readRepo.WithTx(tx).DeleteByPlates(ctx, plates); err != nil {
			return err
		}
		return s.plateRepo.WithTx(tx).Delete(ctx, plate)
	})
}

// DeleteRead removes a single occurrence by id.
func (s *CorrectionService) DeleteRead(ctx context.Context, readID int64) error {
	rows, err := s.readRepo.DeleteByID(ctx, readID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: read %d", ErrNotFound, readID)
	}
	return nil
}

// DeleteMisreadReads purges the occurrences of a plate string only while it
// is currently registered as a misread alias.
func (s *CorrectionService) DeleteMisreadReads(ctx context.Context, plateNumber string) error {
	plate := extract.NormalizePlate(plateNumber)

	info, err := s.knownPlateRepo.Get(ctx, plate)
	if err != nil {
		return err
	}
	if info == nil || !info.IsMisread() {
		return fmt.Errorf("%w: %s is not a misread", ErrInvalidInput, plate)
	}

	_, err = s.readRepo.DeleteByPlates(ctx, []string{plate})
	return err
}

// ToggleFlag flips the user-set suspicious marker on a plate.
func (s *CorrectionService) ToggleFlag(ctx context.Context, plateNumber string, flagged bool) error {
	rows, err := s.plateRepo.SetFlagged(ctx, extract.NormalizePlate(plateNumber), flagged)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: plate %s", ErrNotFound, plateNumber)
	}
	return nil
}
