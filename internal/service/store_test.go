package service

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/repository"
	"github.com/noah-isme/tutoring-schedule-api/internal/schedule"
	"github.com/noah-isme/tutoring-schedule-api/pkg/config"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func testGrid(t *testing.T, capacity int) schedule.Grid {
	t.Helper()
	grid, err := schedule.NewGrid(config.DefaultTimeSlots, capacity, 7, time.UTC)
	require.NoError(t, err)
	return grid
}

// memoryStore is an in-memory stand-in for the tutor, student, session and
// enrollment repositories. It ignores transactions.
type memoryStore struct {
	tutors   []models.Tutor
	students []models.Student
	sessions []*models.Session
	seq      int

	failSessionOn map[string]error
	listErr       error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{failSessionOn: map[string]error{}}
}

func (m *memoryStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memoryStore) addTutor(id, category string, days []int64, slots ...string) models.Tutor {
	tutor := models.Tutor{ID: id, Name: "Tutor " + id, Category: category, Availability: days, AvailabilityBlocks: slots}
	m.tutors = append(m.tutors, tutor)
	return tutor
}

func (m *memoryStore) addStudent(id, name, subject string) models.Student {
	student := models.Student{ID: id, Name: name, Subject: subject, HoursLeft: 10}
	m.students = append(m.students, student)
	return student
}

func (m *memoryStore) session(key models.SessionKey) *models.Session {
	for _, s := range m.sessions {
		if s.Key() == key {
			return s
		}
	}
	return nil
}

func (m *memoryStore) sessionByID(id string) *models.Session {
	for _, s := range m.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// tutor lookups

func (m *memoryStore) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []models.Tutor{}
	for _, tutor := range m.tutors {
		if filter.Category == "" || tutor.Category == filter.Category {
			out = append(out, tutor)
		}
	}
	return out, nil
}

func (m *memoryStore) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	for i := range m.tutors {
		if m.tutors[i].ID == id {
			tutor := m.tutors[i]
			return &tutor, nil
		}
	}
	return nil, sql.ErrNoRows
}

// studentLookup adapts memoryStore to the student-facing interfaces, whose
// method names collide with the tutor ones.
type studentLookup struct{ m *memoryStore }

func (s studentLookup) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	out := []models.Student{}
	for _, student := range s.m.students {
		if filter.Search == "" || strings.Contains(strings.ToLower(student.Name), strings.ToLower(filter.Search)) {
			out = append(out, student)
		}
	}
	slices.SortFunc(out, func(a, b models.Student) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s studentLookup) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for i := range s.m.students {
		if s.m.students[i].ID == id {
			student := s.m.students[i]
			return &student, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s studentLookup) ListScheduledBetween(ctx context.Context, from, to string) ([]string, error) {
	ids := []string{}
	for _, session := range s.m.sessions {
		if session.Date < from || session.Date >= to {
			continue
		}
		for _, e := range session.Students {
			if !slices.Contains(ids, e.StudentID) {
				ids = append(ids, e.StudentID)
			}
		}
	}
	return ids, nil
}

func (s studentLookup) Create(ctx context.Context, student *models.Student) error {
	student.ID = s.m.nextID("student")
	s.m.students = append(s.m.students, *student)
	return nil
}

func (s studentLookup) Update(ctx context.Context, student *models.Student) error {
	for i := range s.m.students {
		if s.m.students[i].ID == student.ID {
			s.m.students[i] = *student
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s studentLookup) Delete(ctx context.Context, id string) error {
	for i := range s.m.students {
		if s.m.students[i].ID == id {
			s.m.students = slices.Delete(s.m.students, i, i+1)
			return nil
		}
	}
	return sql.ErrNoRows
}

// sessions

func (m *memoryStore) ListByRange(ctx context.Context, filter repository.SessionFilter) ([]models.Session, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []models.Session{}
	for _, s := range m.sessions {
		if s.Date < filter.From || s.Date >= filter.To {
			continue
		}
		if filter.TutorID != "" && s.TutorID != filter.TutorID {
			continue
		}
		cp := *s
		cp.Students = slices.Clone(s.Students)
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b models.Session) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})
	return out, nil
}

func (m *memoryStore) FindOrCreateTx(ctx context.Context, tx *sqlx.Tx, key models.SessionKey) (*models.Session, bool, error) {
	if err := m.failSessionOn[key.Date]; err != nil {
		return nil, false, err
	}
	if existing := m.session(key); existing != nil {
		return existing, false, nil
	}
	session := &models.Session{ID: m.nextID("session"), Date: key.Date, TutorID: key.TutorID, Time: key.Time}
	m.sessions = append(m.sessions, session)
	return session, true, nil
}

// sessionLookup exposes session lookups by id, which collide with the tutor
// FindByID on memoryStore.
type sessionLookup struct{ *memoryStore }

func (s sessionLookup) FindByID(ctx context.Context, id string) (*models.Session, error) {
	session := s.sessionByID(id)
	if session == nil {
		return nil, sql.ErrNoRows
	}
	cp := *session
	cp.Students = slices.Clone(session.Students)
	return &cp, nil
}

func (m *memoryStore) DeleteIfEmptyTx(ctx context.Context, tx *sqlx.Tx, sessionID string) (bool, error) {
	for i, s := range m.sessions {
		if s.ID == sessionID && len(s.Students) == 0 {
			m.sessions = slices.Delete(m.sessions, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

// enrollments

func (m *memoryStore) FindTx(ctx context.Context, tx *sqlx.Tx, sessionID, studentID string) (*models.Enrollment, error) {
	if s := m.sessionByID(sessionID); s != nil {
		for i := range s.Students {
			if s.Students[i].StudentID == studentID {
				e := s.Students[i]
				return &e, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) CountTx(ctx context.Context, tx *sqlx.Tx, sessionID string) (int, error) {
	return m.sessionByID(sessionID).EnrollmentCount(), nil
}

func (m *memoryStore) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) (bool, error) {
	if _, err := m.FindTx(ctx, tx, enrollment.SessionID, enrollment.StudentID); err == nil {
		return false, nil
	}
	s := m.sessionByID(enrollment.SessionID)
	if s == nil {
		return false, fmt.Errorf("session %s missing", enrollment.SessionID)
	}
	enrollment.ID = m.nextID("enrollment")
	s.Students = append(s.Students, *enrollment)
	return true, nil
}

func (m *memoryStore) UpdateStatus(ctx context.Context, sessionID, studentID string, status models.EnrollmentStatus) (*models.Enrollment, error) {
	if s := m.sessionByID(sessionID); s != nil {
		for i := range s.Students {
			if s.Students[i].StudentID == studentID {
				s.Students[i].Status = status
				e := s.Students[i]
				return &e, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) DeleteTx(ctx context.Context, tx *sqlx.Tx, sessionID, studentID string) error {
	if s := m.sessionByID(sessionID); s != nil {
		for i := range s.Students {
			if s.Students[i].StudentID == studentID {
				s.Students = slices.Delete(s.Students, i, i+1)
				return nil
			}
		}
	}
	return sql.ErrNoRows
}

func (m *memoryStore) enrollmentRows(sessionID, studentID string) int {
	n := 0
	if s := m.sessionByID(sessionID); s != nil {
		for _, e := range s.Students {
			if e.StudentID == studentID {
				n++
			}
		}
	}
	return n
}
