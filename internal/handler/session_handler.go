package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-schedule-api/pkg/errors"
	"github.com/noah-isme/tutoring-schedule-api/pkg/response"
)

type attendanceService interface {
	SetAttendance(ctx context.Context, sessionID, studentID string, req service.AttendanceRequest) (*models.Enrollment, error)
	SetTutorAttendance(ctx context.Context, tutorID, sessionID, studentID string, req service.AttendanceRequest) (*models.Enrollment, error)
	RemoveEnrollment(ctx context.Context, sessionID, studentID string) (*service.RemovalResult, error)
}

// SessionHandler manages the students enrolled in a session.
type SessionHandler struct {
	service attendanceService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc attendanceService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// SetAttendance godoc
// @Summary Mark attendance
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param studentId path string true "Student ID"
// @Param payload body service.AttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/students/{studentId} [patch]
func (h *SessionHandler) SetAttendance(c *gin.Context) {
	var req service.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	enrollment, err := h.service.SetAttendance(c.Request.Context(), c.Param("id"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// TutorSetAttendance godoc
// @Summary Check in a student from the tutor portal
// @Description Tutors may only mark students in their own sessions. Admins may act for any tutor.
// @Tags Tutor Portal
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param studentId path string true "Student ID"
// @Param tutorId query string false "Tutor to act for (ADMIN only)"
// @Param payload body service.AttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tutor/sessions/{id}/students/{studentId} [patch]
func (h *SessionHandler) TutorSetAttendance(c *gin.Context) {
	var req service.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	claims, err := currentClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var enrollment *models.Enrollment
	if claims.Role == models.RoleAdmin && strings.TrimSpace(c.Query("tutorId")) == "" {
		enrollment, err = h.service.SetAttendance(c.Request.Context(), c.Param("id"), c.Param("studentId"), req)
	} else {
		var tutorID string
		if tutorID, err = portalTutorID(c, claims); err == nil {
			enrollment, err = h.service.SetTutorAttendance(c.Request.Context(), tutorID, c.Param("id"), c.Param("studentId"), req)
		}
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Remove godoc
// @Summary Remove a student from a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/students/{studentId} [delete]
func (h *SessionHandler) Remove(c *gin.Context) {
	result, err := h.service.RemoveEnrollment(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
