package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/repository"
	"github.com/noah-isme/tutoring-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/tutoring-schedule-api/pkg/errors"
)

type sessionReader interface {
	ListByRange(ctx context.Context, filter repository.SessionFilter) ([]models.Session, error)
}

type tutorReader interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, error)
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
}

type studentReader interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

// ScheduleService assembles week views for the admin grid and the tutor portal.
type ScheduleService struct {
	tutors   tutorReader
	students studentReader
	sessions sessionReader
	grid     schedule.Grid
	cache    weekCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(tutors tutorReader, students studentReader, sessions sessionReader, grid schedule.Grid, cache weekCache, cacheTTL time.Duration, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		tutors:   tutors,
		students: students,
		sessions: sessions,
		grid:     grid,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Grid returns the schedule grid the service renders against.
func (s *ScheduleService) Grid() schedule.Grid {
	return s.grid
}

// Week returns the full grid for the week containing the given ISO date.
// cacheHit reports whether the view was served from cache.
func (s *ScheduleService) Week(ctx context.Context, date string) (view *models.WeekView, cacheHit bool, err error) {
	weekStart, err := s.grid.ParseWeek(date)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid week")
	}
	key := WeekCacheKey(schedule.ISODate(weekStart))

	if s.cache != nil {
		var cached models.WeekView
		hit, cacheErr := s.cache.Get(ctx, key, &cached)
		if cacheErr == nil && hit {
			return &cached, true, nil
		}
	}

	from, to := schedule.WeekRange(weekStart, s.grid.WeekDays)
	tutors, err := s.tutors.List(ctx, models.TutorFilter{})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutors")
	}
	students, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	sessions, err := s.sessions.ListByRange(ctx, repository.SessionFilter{From: from, To: to})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}

	view = &models.WeekView{
		WeekStart: from,
		Dates:     s.dates(weekStart),
		TimeSlots: s.grid.Slots,
		Capacity:  s.grid.Capacity,
		Tutors:    tutors,
		Students:  students,
		Sessions:  sessions,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, view, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache week view", zap.String("week_start", from), zap.Error(err))
		}
	}
	return view, false, nil
}

// TutorWeek returns a tutor's own sessions and remaining open seats for the
// week containing date.
func (s *ScheduleService) TutorWeek(ctx context.Context, tutorID, date string) (*models.TutorWeek, error) {
	if tutorID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a tutor")
	}
	weekStart, err := s.grid.ParseWeek(date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid week")
	}
	tutor, err := s.tutors.FindByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	from, to := schedule.WeekRange(weekStart, s.grid.WeekDays)
	sessions, err := s.sessions.ListByRange(ctx, repository.SessionFilter{From: from, To: to, TutorID: tutorID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}

	return &models.TutorWeek{
		WeekStart: from,
		Dates:     s.dates(weekStart),
		Tutor:     *tutor,
		Sessions:  sessions,
		OpenSeats: s.grid.DeriveSeats(weekStart, []models.Tutor{*tutor}, sessions, ""),
	}, nil
}

func (s *ScheduleService) dates(weekStart time.Time) []string {
	dates := make([]string, 0, s.grid.WeekDays)
	for d := range schedule.WeekDates(weekStart, s.grid.WeekDays) {
		dates = append(dates, schedule.ISODate(d))
	}
	return dates
}
