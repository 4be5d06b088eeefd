package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-schedule-api/pkg/errors"
)

type attendanceEnrollmentRepository interface {
	UpdateStatus(ctx context.Context, sessionID, studentID string, status models.EnrollmentStatus) (*models.Enrollment, error)
	DeleteTx(ctx context.Context, tx *sqlx.Tx, sessionID, studentID string) error
}

type attendanceSessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	DeleteIfEmptyTx(ctx context.Context, tx *sqlx.Tx, sessionID string) (bool, error)
}

// AttendanceRequest sets the status of one enrollment.
type AttendanceRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required,oneof=scheduled present no-show"`
}

// RemovalResult reports what a removal changed.
type RemovalResult struct {
	SessionID      string `json:"session_id"`
	StudentID      string `json:"student_id"`
	SessionDeleted bool   `json:"session_deleted"`
}

// AttendanceService mutates enrollments after booking.
type AttendanceService struct {
	tx          txProvider
	enrollments attendanceEnrollmentRepository
	sessions    attendanceSessionRepository
	pruneEmpty  bool
	cache       weekCache
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs an AttendanceService. When pruneEmpty is
// set, a session whose last enrollment is removed is deleted with it.
func NewAttendanceService(tx txProvider, enrollments attendanceEnrollmentRepository, sessions attendanceSessionRepository, pruneEmpty bool, cache weekCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		tx:          tx,
		enrollments: enrollments,
		sessions:    sessions,
		pruneEmpty:  pruneEmpty,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// SetAttendance overwrites an enrollment's status. Any status may follow any other.
func (s *AttendanceService) SetAttendance(ctx context.Context, sessionID, studentID string, req AttendanceRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil || !req.Status.Valid() {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "status must be one of scheduled, present, no-show")
	}
	enrollment, err := s.enrollments.UpdateStatus(ctx, sessionID, studentID, req.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		s.logger.Error("failed to update attendance", zap.String("session_id", sessionID), zap.String("student_id", studentID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}
	s.metrics.RecordAttendance(string(req.Status))
	invalidateWeeks(ctx, s.cache, s.logger)
	return enrollment, nil
}

// SetTutorAttendance is SetAttendance limited to sessions taught by tutorID.
func (s *AttendanceService) SetTutorAttendance(ctx context.Context, tutorID, sessionID, studentID string, req AttendanceRequest) (*models.Enrollment, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if tutorID == "" || session.TutorID != tutorID {
		s.logger.Warn("attendance on foreign session refused", zap.String("tutor_id", tutorID), zap.String("session_id", sessionID))
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another tutor")
	}
	return s.SetAttendance(ctx, sessionID, studentID, req)
}

// RemoveEnrollment deletes a student from a session.
func (s *AttendanceService) RemoveEnrollment(ctx context.Context, sessionID, studentID string) (*RemovalResult, error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.enrollments.DeleteTx(ctx, tx, sessionID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove enrollment")
		return nil, err
	}

	result := &RemovalResult{SessionID: sessionID, StudentID: studentID}
	if s.pruneEmpty {
		if result.SessionDeleted, err = s.sessions.DeleteIfEmptyTx(ctx, tx, sessionID); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prune empty session")
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit removal")
		return nil, err
	}
	s.metrics.RecordRemoval(result.SessionDeleted)
	invalidateWeeks(ctx, s.cache, s.logger)
	return result, nil
}
