package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-schedule-api/internal/middleware"
	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/service"
	"github.com/noah-isme/tutoring-schedule-api/pkg/response"
)

type weekService interface {
	Week(ctx context.Context, date string) (*models.WeekView, bool, error)
	TutorWeek(ctx context.Context, tutorID, date string) (*models.TutorWeek, error)
}

type seatService interface {
	Seats(ctx context.Context, date, category string) (string, []models.Seat, error)
}

type exportService interface {
	ExportWeek(ctx context.Context, date, format string) (*service.ExportFile, error)
}

// ScheduleHandler serves the week grid, derived seats, roster exports and the tutor portal.
type ScheduleHandler struct {
	weeks   weekService
	seats   seatService
	exports exportService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(weeks weekService, seats seatService, exports exportService) *ScheduleHandler {
	return &ScheduleHandler{weeks: weeks, seats: seats, exports: exports}
}

// Week godoc
// @Summary Week grid
// @Description Tutors, students and sessions for the week containing the given date
// @Tags Schedule
// @Produce json
// @Param weekStart path string true "Any date within the week (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedule/weeks/{weekStart} [get]
func (h *ScheduleHandler) Week(c *gin.Context) {
	view, cacheHit, err := h.weeks.Week(c.Request.Context(), c.Param("weekStart"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, view, nil, weekMeta(c, view.WeekStart))
}

// Seats godoc
// @Summary Open seats
// @Description Every bookable seat in the week, optionally filtered by tutor category
// @Tags Schedule
// @Produce json
// @Param week query string false "Any date within the week (YYYY-MM-DD). Defaults to the current week"
// @Param category query string false "Tutor category"
// @Success 200 {object} response.Envelope
// @Router /schedule/seats [get]
func (h *ScheduleHandler) Seats(c *gin.Context) {
	weekStart, seats, err := h.seats.Seats(c.Request.Context(), strings.TrimSpace(c.Query("week")), c.Query("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := weekMeta(c, weekStart)
	meta["count"] = len(seats)
	response.JSON(c, http.StatusOK, seats, nil, meta)
}

// Export godoc
// @Summary Export week roster
// @Tags Schedule
// @Produce text/csv
// @Produce application/pdf
// @Param weekStart path string true "Any date within the week (YYYY-MM-DD)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /schedule/weeks/{weekStart}/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	file, err := h.exports.ExportWeek(c.Request.Context(), c.Param("weekStart"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// TutorWeek godoc
// @Summary Tutor portal week
// @Description The signed-in tutor's sessions and open seats
// @Tags Tutor Portal
// @Produce json
// @Param week query string false "Any date within the week (YYYY-MM-DD). Defaults to the current week"
// @Param tutorId query string false "Tutor to view (ADMIN only)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tutor/me/week [get]
func (h *ScheduleHandler) TutorWeek(c *gin.Context) {
	claims, err := currentClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	tutorID, err := portalTutorID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	week, err := h.weeks.TutorWeek(c.Request.Context(), tutorID, strings.TrimSpace(c.Query("week")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, week, nil, weekMeta(c, week.WeekStart))
}

func weekMeta(c *gin.Context, weekStart string) map[string]interface{} {
	middleware.SetWeekStart(c, weekStart)
	return middleware.ExtractMeta(c)
}
