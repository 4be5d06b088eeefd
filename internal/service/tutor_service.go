package service

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/tutoring-schedule-api/pkg/errors"
)

type tutorRepository interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, error)
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
	Create(ctx context.Context, tutor *models.Tutor) error
	Update(ctx context.Context, tutor *models.Tutor) error
	Delete(ctx context.Context, id string) error
}

// TutorRequest is the create/update payload for tutors. AvailabilityBlocks
// accepts discrete slots ("15:00") and inclusive ranges ("15:00-17:00").
type TutorRequest struct {
	Name               string   `json:"name" validate:"required,max=120"`
	Category           string   `json:"category" validate:"required,max=60"`
	Subjects           []string `json:"subjects" validate:"omitempty,dive,max=60"`
	Availability       []int    `json:"availability" validate:"omitempty,dive,min=1,max=7"`
	AvailabilityBlocks []string `json:"availability_blocks"`
}

// TutorService manages tutors and canonicalises their availability.
type TutorService struct {
	repo      tutorRepository
	grid      schedule.Grid
	cache     weekCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTutorService constructs a TutorService.
func NewTutorService(repo tutorRepository, grid schedule.Grid, cache weekCache, validate *validator.Validate, logger *zap.Logger) *TutorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutorService{repo: repo, grid: grid, cache: cache, validator: validate, logger: logger}
}

// List returns tutors, optionally restricted to a category.
func (s *TutorService) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	tutors, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutors")
	}
	return tutors, nil
}

// Get returns a tutor by id.
func (s *TutorService) Get(ctx context.Context, id string) (*models.Tutor, error) {
	tutor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	return tutor, nil
}

// Create registers a tutor.
func (s *TutorService) Create(ctx context.Context, req TutorRequest) (*models.Tutor, error) {
	tutor := &models.Tutor{}
	if err := s.apply(tutor, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tutor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tutor")
	}
	invalidateWeeks(ctx, s.cache, s.logger)
	return tutor, nil
}

// Update replaces a tutor's profile and availability.
func (s *TutorService) Update(ctx context.Context, id string, req TutorRequest) (*models.Tutor, error) {
	tutor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(tutor, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, tutor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tutor")
	}
	invalidateWeeks(ctx, s.cache, s.logger)
	return tutor, nil
}

// Delete removes a tutor together with their sessions.
func (s *TutorService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete tutor")
	}
	invalidateWeeks(ctx, s.cache, s.logger)
	return nil
}

func (s *TutorService) apply(tutor *models.Tutor, req TutorRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tutor payload")
	}
	name := strings.TrimSpace(req.Name)
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if name == "" || category == "" {
		return appErrors.Clone(appErrors.ErrValidation, "name and category are required")
	}
	cellDays, rawBlocks, err := s.grid.SplitCellKeys(req.AvailabilityBlocks)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidSlot.Code, appErrors.ErrInvalidSlot.Status, "invalid availability blocks")
	}
	days, err := schedule.NormalizeWeekdays(append(slices.Clone(req.Availability), cellDays...))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability")
	}
	blocks, err := s.grid.ExpandBlocks(rawBlocks)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidSlot.Code, appErrors.ErrInvalidSlot.Status, "invalid availability blocks")
	}

	subjects := make(pq.StringArray, 0, len(req.Subjects))
	for _, subject := range req.Subjects {
		if trimmed := strings.TrimSpace(subject); trimmed != "" {
			subjects = append(subjects, trimmed)
		}
	}
	weekdays := make(pq.Int64Array, len(days))
	for i, d := range days {
		weekdays[i] = int64(d)
	}

	tutor.Name = name
	tutor.Category = category
	tutor.Subjects = subjects
	tutor.Availability = weekdays
	tutor.AvailabilityBlocks = pq.StringArray(blocks)
	return nil
}
