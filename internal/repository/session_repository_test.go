package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
)

var sessionRowColumns = []string{"id", "session_date", "tutor_id", "time", "created_at"}

func TestSessionRepositoryListByRangeGroupsEnrollments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + sessionColumns + " FROM sessions WHERE session_date >= $1 AND session_date < $2 ORDER BY session_date ASC, time ASC")).
		WithArgs("2026-02-02", "2026-02-09").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).
			AddRow("sess-1", "2026-02-02", "t1", "15:00", now).
			AddRow("sess-2", "2026-02-03", "t1", "16:00", now))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.session_date >= $1 AND s.session_date < $2 ORDER BY ss.created_at ASC, ss.id ASC")).
		WithArgs("2026-02-02", "2026-02-09").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "student_id", "name", "topic", "status", "created_at", "updated_at"}).
			AddRow("e1", "sess-1", "s1", "Budi", "algebra", "scheduled", now, now).
			AddRow("e2", "sess-1", "s2", "Citra", "algebra", "present", now, now))

	sessions, err := repo.ListByRange(context.Background(), SessionFilter{From: "2026-02-02", To: "2026-02-09"})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, 2, sessions[0].EnrollmentCount())
	assert.Equal(t, models.EnrollmentStatusPresent, sessions[0].Students[1].Status)
	assert.NotNil(t, sessions[1].Students)
	assert.Equal(t, 0, sessions[1].EnrollmentCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListByRangeTutorFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("session_date < $2 AND tutor_id = $3 ORDER BY")).
		WithArgs("2026-02-02", "2026-02-09", "t1").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns))

	sessions, err := repo.ListByRange(context.Background(), SessionFilter{From: "2026-02-02", To: "2026-02-09", TutorID: "t1"})
	require.NoError(t, err)
	assert.Empty(t, sessions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindOrCreateTxReusesExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (session_date, tutor_id, time) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "2026-02-02", "t1", "15:00", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("2026-02-02", "t1", "15:00").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).AddRow("sess-1", "2026-02-02", "t1", "15:00", time.Now()))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	session, created, err := repo.FindOrCreateTx(context.Background(), tx, models.SessionKey{Date: "2026-02-02", TutorID: "t1", Time: "15:00"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.False(t, created)
	assert.Equal(t, "sess-1", session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryDeleteIfEmptyTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = $1 AND NOT EXISTS")).
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	deleted, err := repo.DeleteIfEmptyTx(context.Background(), tx, "sess-1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
