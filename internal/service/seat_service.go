package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/repository"
	"github.com/noah-isme/tutoring-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/tutoring-schedule-api/pkg/errors"
)

// SeatService lists bookable seats for the booking form.
type SeatService struct {
	tutors   tutorReader
	sessions sessionReader
	grid     schedule.Grid
	logger   *zap.Logger
}

// NewSeatService constructs a SeatService.
func NewSeatService(tutors tutorReader, sessions sessionReader, grid schedule.Grid, logger *zap.Logger) *SeatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatService{tutors: tutors, sessions: sessions, grid: grid, logger: logger}
}

// Seats returns every open seat in the week containing date, optionally
// restricted to one tutor category.
func (s *SeatService) Seats(ctx context.Context, date, category string) (weekStart string, seats []models.Seat, err error) {
	start, err := s.grid.ParseWeek(date)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid week")
	}
	category = strings.ToLower(strings.TrimSpace(category))

	tutors, err := s.tutors.List(ctx, models.TutorFilter{Category: category})
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutors")
	}
	from, to := schedule.WeekRange(start, s.grid.WeekDays)
	sessions, err := s.sessions.ListByRange(ctx, repository.SessionFilter{From: from, To: to})
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}

	seats = s.grid.DeriveSeats(start, tutors, sessions, category)
	s.logger.Debug("derived seats", zap.String("week_start", from), zap.String("category", category), zap.Int("count", len(seats)))
	return from, seats, nil
}
