package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-schedule-api/pkg/errors"
)

type fakeBookingSrv struct {
	result *models.BookingResult
	err    error
	last   service.BookingRequest
	calls  int
}

func (f *fakeBookingSrv) Book(_ context.Context, req service.BookingRequest) (*models.BookingResult, error) {
	f.calls++
	f.last = req
	return f.result, f.err
}

func jsonContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func TestBookingHandlerCreate(t *testing.T) {
	srv := &fakeBookingSrv{result: &models.BookingResult{
		TutorID:   "tutor-1",
		StudentID: "student-1",
		Time:      "15:00",
		Requested: 1,
		Weeks:     []models.BookedWeek{{Date: "2026-02-02", SessionID: "s-1", SessionCreated: true}},
	}}
	h := NewBookingHandler(srv)

	c, rec := jsonContext(http.MethodPost, "/bookings", `{"tutor_id":"tutor-1","student_id":"student-1","date":"2026-02-02","time":"15:00","recurring":true,"recurring_weeks":3}`)
	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3, srv.last.RecurringWeeks)
	assert.True(t, srv.last.Recurring)

	var result models.BookingResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	require.Len(t, result.Weeks, 1)
	assert.True(t, result.Weeks[0].SessionCreated)
}

func TestBookingHandlerRejectsMalformedPayload(t *testing.T) {
	srv := &fakeBookingSrv{}
	h := NewBookingHandler(srv)

	c, rec := jsonContext(http.MethodPost, "/bookings", `{"tutor_id":`)
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, srv.calls)
}

func TestBookingHandlerSlotFull(t *testing.T) {
	srv := &fakeBookingSrv{
		result: &models.BookingResult{FailedDate: "2026-02-02"},
		err:    appErrors.Clone(appErrors.ErrSlotFull, "session is at capacity"),
	}
	h := NewBookingHandler(srv)

	c, rec := jsonContext(http.MethodPost, "/bookings", `{"tutor_id":"t","student_id":"s","date":"2026-02-02","time":"15:00"}`)
	h.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "SLOT_FULL", envelope.Error.Code)
	assert.Empty(t, envelope.Data)
}

func TestBookingHandlerPartialBookingCarriesCommittedWeeks(t *testing.T) {
	srv := &fakeBookingSrv{
		result: &models.BookingResult{
			Requested:  3,
			Weeks:      []models.BookedWeek{{Date: "2026-02-02"}, {Date: "2026-02-09"}},
			FailedDate: "2026-02-16",
		},
		err: appErrors.Clone(appErrors.ErrPartialBooking, "week 3 of 3 (2026-02-16) failed"),
	}
	h := NewBookingHandler(srv)

	c, rec := jsonContext(http.MethodPost, "/bookings", `{"tutor_id":"t","student_id":"s","date":"2026-02-02","time":"15:00","recurring":true,"recurring_weeks":3}`)
	h.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "PARTIAL_BOOKING", envelope.Error.Code)

	var result models.BookingResult
	require.NoError(t, json.Unmarshal(envelope.Data, &result))
	assert.Len(t, result.Weeks, 2)
	assert.Equal(t, "2026-02-16", result.FailedDate)
}
