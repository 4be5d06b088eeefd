package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/tutoring-schedule-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type bookingSessionRepository interface {
	FindOrCreateTx(ctx context.Context, tx *sqlx.Tx, key models.SessionKey) (*models.Session, bool, error)
}

type bookingEnrollmentRepository interface {
	FindTx(ctx context.Context, tx *sqlx.Tx, sessionID, studentID string) (*models.Enrollment, error)
	CountTx(ctx context.Context, tx *sqlx.Tx, sessionID string) (int, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) (bool, error)
}

type bookingTutorLookup interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
}

type bookingStudentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// BookingRequest enrolls a student into a tutor's slot, optionally repeating weekly.
type BookingRequest struct {
	TutorID        string `json:"tutor_id" validate:"required"`
	StudentID      string `json:"student_id" validate:"required"`
	Date           string `json:"date" validate:"required"`
	Time           string `json:"time" validate:"required"`
	Topic          string `json:"topic" validate:"omitempty,max=120"`
	Recurring      bool   `json:"recurring"`
	RecurringWeeks int    `json:"recurring_weeks" validate:"min=0"`
}

// BookingConfig bounds recurring bookings.
type BookingConfig struct {
	MaxRecurringWeeks     int
	DefaultRecurringWeeks int
}

// BookingService materialises sessions and enrollments. Each week is its own
// transaction: the session row is locked, then capacity and prior enrollment
// are checked before inserting.
type BookingService struct {
	tx          txProvider
	sessions    bookingSessionRepository
	enrollments bookingEnrollmentRepository
	tutors      bookingTutorLookup
	students    bookingStudentLookup
	grid        schedule.Grid
	cfg         BookingConfig
	cache       weekCache
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewBookingService constructs a BookingService.
func NewBookingService(
	tx txProvider,
	sessions bookingSessionRepository,
	enrollments bookingEnrollmentRepository,
	tutors bookingTutorLookup,
	students bookingStudentLookup,
	grid schedule.Grid,
	cfg BookingConfig,
	cache weekCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRecurringWeeks <= 0 {
		cfg.MaxRecurringWeeks = 52
	}
	if cfg.DefaultRecurringWeeks <= 0 {
		cfg.DefaultRecurringWeeks = 4
	}
	return &BookingService{
		tx:          tx,
		sessions:    sessions,
		enrollments: enrollments,
		tutors:      tutors,
		students:    students,
		grid:        grid,
		cfg:         cfg,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Book enrolls the student for one week, or for RecurringWeeks consecutive
// weeks when Recurring is set. Weeks that committed before a failure stay
// booked; the returned result always lists them.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) (*models.BookingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if !s.grid.IsSlot(req.Time) {
		return nil, appErrors.Clone(appErrors.ErrInvalidSlot, fmt.Sprintf("%q is not a schedule slot", req.Time))
	}
	start, err := schedule.ParseISODate(req.Date, s.grid.Location)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking date")
	}
	if schedule.WeekdayOf(start) > s.grid.WeekDays {
		return nil, appErrors.Clone(appErrors.ErrInvalidSlot, fmt.Sprintf("%s falls outside the %d-day schedule week", req.Date, s.grid.WeekDays))
	}
	weeks, err := s.weekCount(req)
	if err != nil {
		return nil, err
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tutor, err := s.tutors.FindByID(ctx, req.TutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	if !tutor.AvailableAt(schedule.WeekdayOf(start), req.Time) {
		return nil, appErrors.Clone(appErrors.ErrInvalidSlot, "tutor is not available at that day and time")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = student.Subject
	}

	result := &models.BookingResult{
		TutorID:   tutor.ID,
		StudentID: student.ID,
		Time:      req.Time,
		Requested: weeks,
		Weeks:     make([]models.BookedWeek, 0, weeks),
	}
	defer func() {
		if len(result.Weeks) > 0 {
			invalidateWeeks(ctx, s.cache, s.logger)
		}
	}()

	for w := 0; w < weeks; w++ {
		key := models.SessionKey{
			Date:    schedule.ISODate(schedule.AddDays(start, 7*w)),
			TutorID: tutor.ID,
			Time:    req.Time,
		}
		booked, weekErr := s.bookWeek(ctx, key, student, topic)
		if weekErr != nil {
			result.FailedDate = key.Date
			s.logger.Warn("booking week failed",
				zap.String("tutor_id", tutor.ID),
				zap.String("student_id", student.ID),
				zap.String("date", key.Date),
				zap.Int("week", w+1),
				zap.Int("committed_weeks", len(result.Weeks)),
				zap.Error(weekErr))
			if w == 0 {
				return result, weekErr
			}
			cause := appErrors.FromError(weekErr)
			return result, appErrors.Wrap(weekErr, appErrors.ErrPartialBooking.Code, appErrors.ErrPartialBooking.Status,
				fmt.Sprintf("week %d of %d (%s) failed: %s; %d earlier week(s) remain booked", w+1, weeks, key.Date, cause.Message, len(result.Weeks)))
		}
		result.Weeks = append(result.Weeks, *booked)
	}
	return result, nil
}

func (s *BookingService) weekCount(req BookingRequest) (int, error) {
	if !req.Recurring {
		return 1, nil
	}
	weeks := req.RecurringWeeks
	if weeks == 0 {
		weeks = s.cfg.DefaultRecurringWeeks
	}
	if weeks < 1 || weeks > s.cfg.MaxRecurringWeeks {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("recurring_weeks must be between 1 and %d", s.cfg.MaxRecurringWeeks))
	}
	return weeks, nil
}

func (s *BookingService) bookWeek(ctx context.Context, key models.SessionKey, student *models.Student, topic string) (*models.BookedWeek, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		s.metrics.RecordBooking(BookingOutcomeFailed, false)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	session, created, err := s.sessions.FindOrCreateTx(ctx, tx, key)
	if err != nil {
		s.metrics.RecordBooking(BookingOutcomeFailed, false)
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to materialise session")
		return nil, err
	}
	booked := &models.BookedWeek{Date: key.Date, SessionID: session.ID, SessionCreated: created}

	existing, findErr := s.enrollments.FindTx(ctx, tx, session.ID, student.ID)
	switch {
	case findErr == nil:
		booked.EnrollmentID = existing.ID
		booked.AlreadyEnrolled = true
		if err = tx.Commit(); err != nil {
			s.metrics.RecordBooking(BookingOutcomeFailed, false)
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit booking")
			return nil, err
		}
		s.metrics.RecordBooking(BookingOutcomeExisting, created)
		return booked, nil
	case !errors.Is(findErr, sql.ErrNoRows):
		s.metrics.RecordBooking(BookingOutcomeFailed, false)
		err = appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		return nil, err
	}

	count, err := s.enrollments.CountTx(ctx, tx, session.ID)
	if err != nil {
		s.metrics.RecordBooking(BookingOutcomeFailed, false)
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
		return nil, err
	}
	if !schedule.HasRoom(count, s.grid.Capacity) {
		s.metrics.RecordBooking(BookingOutcomeFull, false)
		err = appErrors.Clone(appErrors.ErrSlotFull, fmt.Sprintf("session on %s at %s already has %d of %d students", key.Date, key.Time, count, s.grid.Capacity))
		return nil, err
	}

	enrollment := &models.Enrollment{
		SessionID: session.ID,
		StudentID: student.ID,
		Name:      student.Name,
		Topic:     topic,
		Status:    models.EnrollmentStatusScheduled,
	}
	inserted, err := s.enrollments.CreateTx(ctx, tx, enrollment)
	if err != nil {
		s.metrics.RecordBooking(BookingOutcomeFailed, false)
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		return nil, err
	}
	booked.EnrollmentID = enrollment.ID
	booked.AlreadyEnrolled = !inserted

	if err = tx.Commit(); err != nil {
		s.metrics.RecordBooking(BookingOutcomeFailed, false)
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit booking")
		return nil, err
	}
	s.metrics.RecordBooking(BookingOutcomeBooked, created)
	return booked, nil
}
