package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
)

const sessionColumns = "id, to_char(session_date, 'YYYY-MM-DD') AS session_date, tutor_id, time, created_at"

// SessionFilter bounds a session listing. From is inclusive, To exclusive.
type SessionFilter struct {
	From    string
	To      string
	TutorID string
}

// SessionRepository persists sessions and loads them joined with their enrollments.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ListByRange returns sessions in the date range ordered by date then time,
// each carrying its enrollments in booking order.
func (r *SessionRepository) ListByRange(ctx context.Context, filter SessionFilter) ([]models.Session, error) {
	where, args := rangePredicate("", filter)
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE %s ORDER BY session_date ASC, time ASC", sessionColumns, where)
	sessions := []models.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	joinedWhere, _ := rangePredicate("s.", filter)
	enrollQuery := fmt.Sprintf(`SELECT ss.id, ss.session_id, ss.student_id, ss.name, ss.topic, ss.status, ss.created_at, ss.updated_at
		FROM session_students ss JOIN sessions s ON s.id = ss.session_id
		WHERE %s ORDER BY ss.created_at ASC, ss.id ASC`, joinedWhere)
	enrollments := []models.Enrollment{}
	if err := r.db.SelectContext(ctx, &enrollments, enrollQuery, args...); err != nil {
		return nil, fmt.Errorf("list session enrollments: %w", err)
	}

	bySession := make(map[string]int, len(sessions))
	for i := range sessions {
		sessions[i].Students = []models.Enrollment{}
		bySession[sessions[i].ID] = i
	}
	for _, e := range enrollments {
		if i, ok := bySession[e.SessionID]; ok {
			sessions[i].Students = append(sessions[i].Students, e)
		}
	}
	return sessions, nil
}

// FindByID fetches a session without its enrollments.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByKey fetches the session for a (date, tutor, time) triple.
func (r *SessionRepository) FindByKey(ctx context.Context, key models.SessionKey) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE session_date = $1 AND tutor_id = $2 AND time = $3", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, key.Date, key.TutorID, key.Time); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create inserts a session row. The unique key rejects duplicates.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sessions (id, session_date, tutor_id, time, created_at) VALUES (:id, :session_date, :tutor_id, :time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindOrCreateTx returns the session for key, creating it when absent, and
// holds a row lock on it until tx ends. created reports whether this call
// inserted the row.
func (r *SessionRepository) FindOrCreateTx(ctx context.Context, tx *sqlx.Tx, key models.SessionKey) (*models.Session, bool, error) {
	const insert = `INSERT INTO sessions (id, session_date, tutor_id, time, created_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_date, tutor_id, time) DO NOTHING`
	res, err := tx.ExecContext(ctx, insert, uuid.NewString(), key.Date, key.TutorID, key.Time, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("insert session: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM sessions WHERE session_date = $1 AND tutor_id = $2 AND time = $3 FOR UPDATE", sessionColumns)
	var session models.Session
	if err := tx.GetContext(ctx, &session, query, key.Date, key.TutorID, key.Time); err != nil {
		return nil, false, fmt.Errorf("lock session: %w", err)
	}
	return &session, inserted > 0, nil
}

// DeleteIfEmptyTx removes the session when no enrollment references it.
func (r *SessionRepository) DeleteIfEmptyTx(ctx context.Context, tx *sqlx.Tx, sessionID string) (bool, error) {
	const query = `DELETE FROM sessions WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM session_students WHERE session_id = $1)`
	res, err := tx.ExecContext(ctx, query, sessionID)
	if err != nil {
		return false, fmt.Errorf("delete empty session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func rangePredicate(alias string, filter SessionFilter) (string, []interface{}) {
	where := fmt.Sprintf("%[1]ssession_date >= $1 AND %[1]ssession_date < $2", alias)
	args := []interface{}{filter.From, filter.To}
	if filter.TutorID != "" {
		where += fmt.Sprintf(" AND %stutor_id = $3", alias)
		args = append(args, filter.TutorID)
	}
	return where, args
}
