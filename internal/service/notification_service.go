package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"alpr-service/internal/extract"
	"alpr-service/internal/model"
	"alpr-service/internal/notify"
	"alpr-service/internal/repository"
)

type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	tagRepo          *repository.TagRepository
	notifier         notify.Notifier
	log              zerolog.Logger
}

func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	tagRepo *repository.TagRepository,
	notifier notify.Notifier,
	log zerolog.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		tagRepo:          tagRepo,
		notifier:         notifier,
		log:              log,
	}
}

// CheckAndNotify fires a push notification when the canonical plate is on an
// enabled watch. Delivery errors are logged and swallowed: they must never
// surface to the event source or block the occurrence write.
func (s *NotificationService) CheckAndNotify(ctx context.Context, canonicalPlate string, imageData *string) {
	watch, err := s.notificationRepo.GetEnabled(ctx, canonicalPlate)
	if err != nil {
		s.log.Warn().Err(err).Str("plate", canonicalPlate).Msg("notification watch lookup failed")
		return
	}
	if watch == nil {
		return
	}

	if err := s.notifier.Notify(canonicalPlate, watch.Priority, imageData); err != nil {
		s.log.Warn().Err(err).Str("plate", canonicalPlate).Msg("push notification delivery failed")
	}
}

type NotificationView struct {
	model.PlateNotification
	Tags []model.TagInfo `json:"tags"`
}

func (s *NotificationService) List(ctx context.Context) ([]NotificationView, error) {
	watches, err := s.notificationRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]NotificationView, 0, len(watches))
	for _, w := range watches {
		tags, err := s.tagRepo.TagsForPlate(ctx, w.PlateNumber)
		if err != nil {
			return nil, err
		}
		views = append(views, NotificationView{PlateNotification: w, Tags: tags})
	}
	return views, nil
}

// Add creates a watch for the plate, or re-enables an existing one.
func (s *NotificationService) Add(ctx context.Context, plateNumber string) (*model.PlateNotification, error) {
	plate := extract.NormalizePlate(plateNumber)
	if plate == "" {
		return nil, fmt.Errorf("%w: plate number is required", ErrInvalidInput)
	}
	return s.notificationRepo.Upsert(ctx, plate)
}

func (s *NotificationService) SetPriority(ctx context.Context, plateNumber string, priority int) error {
	if priority < model.NotificationPriorityMin || priority > model.NotificationPriorityMax {
		return fmt.Errorf("%w: priority must be between %d and %d",
			ErrInvalidInput, model.NotificationPriorityMin, model.NotificationPriorityMax)
	}

	rows, err := s.notificationRepo.SetPriority(ctx, plateNumber, priority)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) SetEnabled(ctx context.Context, plateNumber string, enabled bool) error {
	rows, err := s.notificationRepo.SetEnabled(ctx, plateNumber, enabled)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) Delete(ctx context.Context, plateNumber string) error {
	if _, err := s.notificationRepo.Get(ctx, plateNumber); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.notificationRepo.Delete(ctx, plateNumber)
}
