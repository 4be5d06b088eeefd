package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-schedule-api/pkg/errors"
)

type fakeTutorSrv struct {
	tutors     []models.Tutor
	lastFilter models.TutorFilter
	lastReq    service.TutorRequest
	deleted    string
	err        error
}

func (f *fakeTutorSrv) List(_ context.Context, filter models.TutorFilter) ([]models.Tutor, error) {
	f.lastFilter = filter
	return f.tutors, f.err
}

func (f *fakeTutorSrv) Get(_ context.Context, id string) (*models.Tutor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Tutor{ID: id}, nil
}

func (f *fakeTutorSrv) Create(_ context.Context, req service.TutorRequest) (*models.Tutor, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Tutor{ID: "tutor-1", Name: req.Name, Category: req.Category}, nil
}

func (f *fakeTutorSrv) Update(_ context.Context, id string, req service.TutorRequest) (*models.Tutor, error) {
	f.lastReq = req
	return &models.Tutor{ID: id, Name: req.Name}, f.err
}

func (f *fakeTutorSrv) Delete(_ context.Context, id string) error {
	f.deleted = id
	return f.err
}

type fakeStudentSrv struct {
	candidates []models.BookingCandidate
	lastWeek   string
	lastSearch string
	err        error
}

func (f *fakeStudentSrv) List(_ context.Context, filter models.StudentFilter) ([]models.Student, error) {
	f.lastSearch = filter.Search
	return []models.Student{{ID: "student-1", Name: "Ana"}}, f.err
}

func (f *fakeStudentSrv) ListForBooking(_ context.Context, week, search string) ([]models.BookingCandidate, error) {
	f.lastWeek = week
	f.lastSearch = search
	return f.candidates, f.err
}

func (f *fakeStudentSrv) Get(_ context.Context, id string) (*models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: id}, nil
}

func (f *fakeStudentSrv) Create(_ context.Context, req service.StudentRequest) (*models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: "student-2", Name: req.Name, HoursLeft: req.HoursLeft}, nil
}

func (f *fakeStudentSrv) Update(_ context.Context, id string, req service.StudentRequest) (*models.Student, error) {
	return &models.Student{ID: id, Name: req.Name}, f.err
}

func (f *fakeStudentSrv) Delete(_ context.Context, _ string) error {
	return f.err
}

func TestTutorHandlerListNormalisesCategory(t *testing.T) {
	srv := &fakeTutorSrv{tutors: []models.Tutor{{ID: "tutor-1"}}}
	h := NewTutorHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/tutors?category=%20Math%20&search=ana")
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TutorFilter{Category: "math", Search: "ana"}, srv.lastFilter)
}

func TestTutorHandlerCreate(t *testing.T) {
	srv := &fakeTutorSrv{}
	h := NewTutorHandler(srv)

	c, rec := jsonContext(http.MethodPost, "/tutors", `{"name":"Bea","category":"math","availability":[1,3],"availability_blocks":["15:00-16:00"]}`)
	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []int{1, 3}, srv.lastReq.Availability)
	assert.Equal(t, []string{"15:00-16:00"}, srv.lastReq.AvailabilityBlocks)
}

func TestTutorHandlerCreateInvalidSlot(t *testing.T) {
	srv := &fakeTutorSrv{err: appErrors.Clone(appErrors.ErrInvalidSlot, "14:45 is not a time slot")}
	h := NewTutorHandler(srv)

	c, rec := jsonContext(http.MethodPost, "/tutors", `{"name":"Bea","category":"math","availability_blocks":["14:45"]}`)
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "INVALID_SLOT", envelope.Error.Code)
}

func TestTutorHandlerDelete(t *testing.T) {
	srv := &fakeTutorSrv{}
	h := NewTutorHandler(srv)

	c, rec := newTestContext(http.MethodDelete, "/tutors/tutor-1")
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}
	h.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "tutor-1", srv.deleted)
}

func TestTutorHandlerGetNotFound(t *testing.T) {
	h := NewTutorHandler(&fakeTutorSrv{err: appErrors.Clone(appErrors.ErrNotFound, "tutor not found")})

	c, rec := newTestContext(http.MethodGet, "/tutors/missing")
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentHandlerListForBooking(t *testing.T) {
	srv := &fakeStudentSrv{candidates: []models.BookingCandidate{
		{Student: models.Student{ID: "s-2", Name: "Zed"}},
		{Student: models.Student{ID: "s-1", Name: "Ana"}, ScheduledThisWeek: true},
	}}
	h := NewStudentHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/students/booking?week=2026-02-04&search=%20a%20")
	h.ListForBooking(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-02-04", srv.lastWeek)
	assert.Equal(t, "a", srv.lastSearch)

	var candidates []models.BookingCandidate
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &candidates))
	require.Len(t, candidates, 2)
	assert.Equal(t, "s-2", candidates[0].ID)
	assert.True(t, candidates[1].ScheduledThisWeek)
}

func TestStudentHandlerCreate(t *testing.T) {
	h := NewStudentHandler(&fakeStudentSrv{})

	c, rec := jsonContext(http.MethodPost, "/students", `{"name":"Ana","subject":"math","hours_left":4}`)
	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	var student models.Student
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &student))
	assert.Equal(t, 4, student.HoursLeft)
}

func TestStudentHandlerCreateValidationError(t *testing.T) {
	h := NewStudentHandler(&fakeStudentSrv{err: appErrors.Clone(appErrors.ErrValidation, "name is required")})

	c, rec := jsonContext(http.MethodPost, "/students", `{"name":"   "}`)
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
