package service

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/schedule"
	"github.com/noah-isme/tutoring-schedule-api/pkg/config"
	appErrors "github.com/noah-isme/tutoring-schedule-api/pkg/errors"
)

type bookingFixture struct {
	store *memoryStore
	mock  sqlmock.Sqlmock
	svc     *BookingService
	cache   *cacheStub
	metrics *MetricsService
}

func newBookingFixture(t *testing.T, capacity int) *bookingFixture {
	store := newMemoryStore()
	store.addTutor("tutor-1", "math", []int64{1, 3}, "15:00", "15:30")
	store.addStudent("stu-1", "Budi", "algebra")
	store.addStudent("stu-2", "Citra", "geometry")
	store.addStudent("stu-3", "Dewi", "algebra")

	tx, mock := newTxProviderMock(t)
	cache := &cacheStub{}
	metrics := NewMetricsService()
	svc := NewBookingService(tx, store, store, store, studentLookup{store}, testGrid(t, capacity),
		BookingConfig{MaxRecurringWeeks: 8, DefaultRecurringWeeks: 4}, cache, metrics, nil, zap.NewNop())
	return &bookingFixture{store: store, mock: mock, svc: svc, cache: cache, metrics: metrics}
}

func (f *bookingFixture) expectCommits(n int) {
	for i := 0; i < n; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
	}
}

func TestBookingServiceReusesSessionForSameSlot(t *testing.T) {
	f := newBookingFixture(t, 2)
	f.expectCommits(2)

	first, err := f.svc.Book(context.Background(), BookingRequest{TutorID: "tutor-1", StudentID: "stu-1", Date: "2026-02-02", Time: "15:00"})
	require.NoError(t, err)
	second, err := f.svc.Book(context.Background(), BookingRequest{TutorID: "tutor-1", StudentID: "stu-2", Date: "2026-02-02", Time: "15:00"})
	require.NoError(t, err)

	require.Len(t, first.Weeks, 1)
	require.Len(t, second.Weeks, 1)
	assert.Equal(t, first.Weeks[0].SessionID, second.Weeks[0].SessionID)
	assert.True(t, first.Weeks[0].SessionCreated)
	assert.False(t, second.Weeks[0].SessionCreated)
	assert.Len(t, f.store.sessions, 1)
	assert.Equal(t, 2, f.store.sessions[0].EnrollmentCount())
	assert.Equal(t, 2, f.cache.invalidations)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestBookingServiceRecurringCreatesWeeklySessions(t *testing.T) {
	f := newBookingFixture(t, 2)
	f.expectCommits(3)

	result, err := f.svc.Book(context.Background(), BookingRequest{
		TutorID: "tutor-1", StudentID: "stu-1", Date: "2026-02-02", Time: "15:00",
		Recurring: true, RecurringWeeks: 3,
	})
	require.NoError(t, err)

	dates := make([]string, 0, len(result.Weeks))
	for _, w := range result.Weeks {
		dates = append(dates, w.Date)
		assert.Equal(t, 1, f.store.enrollmentRows(w.SessionID, "stu-1"))
	}
	assert.Equal(t, []string{"2026-02-02", "2026-02-09", "2026-02-16"}, dates)
	assert.Equal(t, 3, result.Requested)
	assert.Len(t, f.store.sessions, 3)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestBookingServiceRecurringDefaultsWeekCount(t *testing.T) {
	f := newBookingFixture(t, 2)
	f.expectCommits(4)

	result, err := f.svc.Book(context.Background(), BookingRequest{
		TutorID: "tutor-1", StudentID: "stu-1", Date: "2026-02-02", Time: "15:00", Recurring: true,
	})
	require.NoError(t, err)
	assert.Len(t, result.Weeks, 4)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestBookingServiceRebookingSameStudentIsIdempotent(t *testing.T) {
	f := newBookingFixture(t, 2)
	f.expectCommits(2)
	req := BookingRequest{TutorID: "tutor-1", StudentID: "stu-1", Date: "2026-02-02", Time: "15:00", Topic: "fractions"}

	first, err := f.svc.Book(context.Background(), req)
	require.NoError(t, err)
	again, err := f.svc.Book(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, again.Weeks[0].AlreadyEnrolled)
	assert.Equal(t, first.Weeks[0].EnrollmentID, again.Weeks[0].EnrollmentID)
	assert.Equal(t, 1, f.store.enrollmentRows(first.Weeks[0].SessionID, "stu-1"))
	assert.Equal(t, "fractions", f.store.sessions[0].Students[0].Topic)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestBookingServiceCountsFailedCommitOnRebooking(t *testing.T) {
	f := newBookingFixture(t, 2)
	f.expectCommits(1)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit().WillReturnError(errors.New("connection reset"))
	req := BookingRequest{TutorID: "tutor-1", StudentID: "stu-1", Date: "2026-02-02", Time: "15:00"}

	_, err := f.svc.Book(context.Background(), req)
	require.NoError(t, err)
	_, err = f.svc.Book(context.Background(), req)
	require.Error(t, err)

	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.bookingWeeks.WithLabelValues(BookingOutcomeFailed)))
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.bookingWeeks.WithLabelValues(BookingOutcomeExisting)))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestBookingServiceRejectsDayOutsideWeek(t *testing.T) {
	store := newMemoryStore()
	store.addTutor("tutor-1", "math", []int64{5, 6}, "15:00")
	store.addStudent("stu-1", "Budi", "algebra")
	grid, err := schedule.NewGrid(config.DefaultTimeSlots, 2, 5, time.UTC)
	require.NoError(t, err)
	tx, mock := newTxProviderMock(t)
	svc := NewBookingService(tx, store, store, store, studentLookup{store}, grid,
		BookingConfig{MaxRecurringWeeks: 8, DefaultRecurringWeeks: 4}, nil, nil, nil, zap.NewNop())

	_, err = svc.Book(context.Background(), BookingRequest{TutorID: "tutor-1", StudentID: "stu-1", Date: "2026-02-07", Time: "15:00"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidSlot.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.sessions)

	mock.ExpectBegin()
	mock.ExpectCommit()
	result, err := svc.Book(context.Background(), BookingRequest{TutorID: "tutor-1", StudentID: "stu-1", Date: "2026-02-06", Time: "15:00"})
	require.NoError(t, err)
	assert.Len(t, result.Weeks, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingServiceRejectsFullSession(t *testing.T) {
	f := newBookingFixture(t, 2)
	f.expectCommits(2)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	for _, id := range []string{"stu-1", "stu-2"} {
		_, err := f.svc.Book(context.Background(), BookingRequest{TutorID: "tutor-1", StudentID: id, Date: "2026-02-02", Time: "15:00"})
		require.NoError(t, err)
	}
	result, err := f.svc.Book(context.Background(), BookingRequest{TutorID: "tutor-1", StudentID: "stu-3", Date: "2026-02-02", Time: "15:00"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrSlotFull.Code, appErr.Code)
	assert.Empty(t, result.Weeks)
	assert.Equal(t, "2026-02-02", result.FailedDate)
	assert.Equal(t, 2, f.store.sessions[0].EnrollmentCount())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestBookingServicePartialRecurringKeepsCommittedWeeks(t *testing.T) {
	f := newBookingFixture(t, 2)
	f.store.failSessionOn["2026-02-16"] = errors.New("connection reset")
	f.expectCommits(2)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	result, err := f.svc.Book(context.Background(), BookingRequest{
		TutorID: "tutor-1", StudentID: "stu-1", Date: "2026-02-02", Time: "15:00",
		Recurring: true, RecurringWeeks: 4,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPartialBooking.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "week 3 of 4 (2026-02-16)")
	require.Len(t, result.Weeks, 2)
	assert.Equal(t, "2026-02-16", result.FailedDate)
	assert.Len(t, f.store.sessions, 2)
	assert.Equal(t, 1, f.cache.invalidations)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestBookingServiceValidation(t *testing.T) {
	cases := []struct {
		name string
		req  BookingRequest
		code string
	}{
		{"missing student", BookingRequest{TutorID: "tutor-1", Date: "2026-02-02", Time: "15:00"}, appErrors.ErrValidation.Code},
		{"off-grid time", BookingRequest{TutorID: "tutor-1", StudentID: "stu-1", Date: "2026-02-02", Time: "15:15"}, appErrors.ErrInvalidSlot.Code},
		{"bad date", BookingRequest{TutorID: "tutor-1", StudentID: "stu-1", Date: "02/02/2026", Time: "15:00"}, appErrors.ErrValidation.Code},
		{"too many weeks", BookingRequest{TutorID: "tutor-1", StudentID: "stu-1", Date: "2026-02-02", Time: "15:00", Recurring: true, RecurringWeeks: 9}, appErrors.ErrValidation.Code},
		{"tutor off that day", BookingRequest{TutorID: "tutor-1", StudentID: "stu-1", Date: "2026-02-03", Time: "15:00"}, appErrors.ErrInvalidSlot.Code},
		{"tutor not offering slot", BookingRequest{TutorID: "tutor-1", StudentID: "stu-1", Date: "2026-02-02", Time: "16:00"}, appErrors.ErrInvalidSlot.Code},
		{"unknown tutor", BookingRequest{TutorID: "tutor-9", StudentID: "stu-1", Date: "2026-02-02", Time: "15:00"}, appErrors.ErrNotFound.Code},
		{"unknown student", BookingRequest{TutorID: "tutor-1", StudentID: "stu-9", Date: "2026-02-02", Time: "15:00"}, appErrors.ErrNotFound.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newBookingFixture(t, 2)
			_, err := f.svc.Book(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
			assert.Empty(t, f.store.sessions)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestBookingServiceDefaultsTopicToStudentSubject(t *testing.T) {
	f := newBookingFixture(t, 2)
	f.expectCommits(1)

	_, err := f.svc.Book(context.Background(), BookingRequest{TutorID: "tutor-1", StudentID: "stu-2", Date: "2026-02-04", Time: "15:30"})
	require.NoError(t, err)
	require.Len(t, f.store.sessions, 1)
	enrollment := f.store.sessions[0].Students[0]
	assert.Equal(t, "geometry", enrollment.Topic)
	assert.Equal(t, "Citra", enrollment.Name)
	assert.Equal(t, models.EnrollmentStatusScheduled, enrollment.Status)
}
