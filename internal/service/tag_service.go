package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"alpr-service/internal/extract"
	"alpr-service/internal/model"
	"alpr-service/internal/repository"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// TagService manages the tag catalog and plate/tag assignments.
type TagService struct {
	tagRepo   *repository.TagRepository
	plateRepo *repository.PlateRepository
	log       zerolog.Logger
}

func NewTagService(tagRepo *repository.TagRepository, plateRepo *repository.PlateRepository, log zerolog.Logger) *TagService {
	return &TagService{tagRepo: tagRepo, plateRepo: plateRepo, log: log}
}

func (s *TagService) List(ctx context.Context) ([]model.Tag, error) {
	return s.tagRepo.List(ctx)
}

func (s *TagService) Create(ctx context.Context, name, color string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	if color == "" {
		color = "#808080"
	}
	if !hexColorPattern.MatchString(color) {
		return nil, ErrInvalidInput
	}

	existing, err := s.tagRepo.GetByName(ctx, name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	tag := &model.Tag{Name: name, Color: color}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TagService) UpdateColor(ctx context.Context, name, color string) error {
	if !hexColorPattern.MatchString(color) {
		return ErrInvalidInput
	}
	affected, err := s.tagRepo.UpdateColor(ctx, name, color)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the tag and every plate assignment pointing at it.
func (s *TagService) Delete(ctx context.Context, name string) error {
	if _, err := s.tagRepo.GetByName(ctx, name); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.tagRepo.DeleteByName(ctx, name)
}

func (s *TagService) AddToPlate(ctx context.Context, plateNumber, tagName string) error {
	plateNumber = extract.NormalizePlate(plateNumber)
	if plateNumber == "" || tagName == "" {
		return ErrInvalidInput
	}

	if _, err := s.plateRepo.GetByPlateNumber(ctx, plateNumber); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	tag, err := s.tagRepo.GetByName(ctx, tagName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	return s.tagRepo.AddToPlate(ctx, plateNumber, tag.ID)
}

func (s *TagService) RemoveFromPlate(ctx context.Context, plateNumber, tagName string) error {
	plateNumber = extract.NormalizePlate(plateNumber)

	tag, err := s.tagRepo.GetByName(ctx, tagName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	return s.tagRepo.RemoveFromPlate(ctx, plateNumber, tag.ID)
}

func (s *TagService) TagsForPlate(ctx context.Context, plateNumber string) ([]model.TagInfo, error) {
	return s.tagRepo.TagsForPlate(ctx, extract.NormalizePlate(plateNumber))
}
