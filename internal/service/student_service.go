package service

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/tutoring-schedule-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListScheduledBetween(ctx context.Context, from, to string) ([]string, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// StudentRequest is the create/update payload for students.
type StudentRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	Subject   string `json:"subject" validate:"omitempty,max=60"`
	HoursLeft int    `json:"hours_left" validate:"min=0"`
}

// StudentService handles student roster use cases.
type StudentService struct {
	repo      studentRepository
	grid      schedule.Grid
	cache     weekCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, grid schedule.Grid, cache weekCache, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, grid: grid, cache: cache, validator: validate, logger: logger}
}

// List returns students ordered by name.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	students, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// ListForBooking returns students for the booking picker: those without a
// session in the given week come first, each group ordered by name.
func (s *StudentService) ListForBooking(ctx context.Context, week, search string) ([]models.BookingCandidate, error) {
	weekStart, err := s.grid.ParseWeek(week)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid week")
	}
	students, err := s.List(ctx, models.StudentFilter{Search: search})
	if err != nil {
		return nil, err
	}
	from, to := schedule.WeekRange(weekStart, s.grid.WeekDays)
	scheduledIDs, err := s.repo.ListScheduledBetween(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled students")
	}
	scheduled := make(map[string]struct{}, len(scheduledIDs))
	for _, id := range scheduledIDs {
		scheduled[id] = struct{}{}
	}

	candidates := make([]models.BookingCandidate, len(students))
	for i, student := range students {
		_, ok := scheduled[student.ID]
		candidates[i] = models.BookingCandidate{Student: student, ScheduledThisWeek: ok}
	}
	slices.SortStableFunc(candidates, func(a, b models.BookingCandidate) int {
		if a.ScheduledThisWeek != b.ScheduledThisWeek {
			if a.ScheduledThisWeek {
				return 1
			}
			return -1
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return candidates, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student. Blank names are rejected before any store call.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	student := &models.Student{}
	if err := s.apply(student, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	invalidateWeeks(ctx, s.cache, s.logger)
	return student, nil
}

// Update modifies a student.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(student, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	invalidateWeeks(ctx, s.cache, s.logger)
	return student, nil
}

// Delete removes a student and their enrollments.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	invalidateWeeks(ctx, s.cache, s.logger)
	return nil
}

func (s *StudentService) apply(student *models.Student, req StudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student name is required")
	}
	student.Name = name
	student.Subject = strings.TrimSpace(req.Subject)
	student.HoursLeft = req.HoursLeft
	return nil
}
