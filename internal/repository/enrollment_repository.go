package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
)

const enrollmentColumns = "id, session_id, student_id, name, topic, status, created_at, updated_at"

// EnrollmentRepository manages session_students rows.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CountTx returns the number of students enrolled in a session.
func (r *EnrollmentRepository) CountTx(ctx context.Context, tx *sqlx.Tx, sessionID string) (int, error) {
	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM session_students WHERE session_id = $1`, sessionID); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// FindTx fetches the enrollment of a student in a session.
func (r *EnrollmentRepository) FindTx(ctx context.Context, tx *sqlx.Tx, sessionID, studentID string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM session_students WHERE session_id = $1 AND student_id = $2", enrollmentColumns)
	var enrollment models.Enrollment
	if err := tx.GetContext(ctx, &enrollment, query, sessionID, studentID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CreateTx inserts an enrollment. A student already enrolled in the session
// is left untouched and inserted reports false.
func (r *EnrollmentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) (bool, error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusScheduled
	}
	now := time.Now().UTC()
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now

	const query = `INSERT INTO session_students (id, session_id, student_id, name, topic, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, student_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, query,
		enrollment.ID, enrollment.SessionID, enrollment.StudentID, enrollment.Name,
		enrollment.Topic, enrollment.Status, enrollment.CreatedAt, enrollment.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("create enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdateStatus overwrites the attendance status of an enrollment. Any status
// may replace any other.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, sessionID, studentID string, status models.EnrollmentStatus) (*models.Enrollment, error) {
	query := fmt.Sprintf(`UPDATE session_students SET status = $3, updated_at = $4
		WHERE session_id = $1 AND student_id = $2 RETURNING %s`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, sessionID, studentID, status, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update enrollment status: %w", err)
	}
	return &enrollment, nil
}

// DeleteTx removes an enrollment, returning sql.ErrNoRows when none matched.
func (r *EnrollmentRepository) DeleteTx(ctx context.Context, tx *sqlx.Tx, sessionID, studentID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM session_students WHERE session_id = $1 AND student_id = $2`, sessionID, studentID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return expectAffected(res)
}
