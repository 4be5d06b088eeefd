package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-schedule-api/internal/middleware"
	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-schedule-api/pkg/errors"
)

// currentClaims returns the claims stored by the JWT middleware.
func currentClaims(c *gin.Context) (*models.JWTClaims, error) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, appErrors.ErrUnauthorized
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok || claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

// portalTutorID resolves whose week the portal shows. Tutors always see
// their own; admins may pick one with ?tutorId.
func portalTutorID(c *gin.Context, claims *models.JWTClaims) (string, error) {
	if claims.Role == models.RoleAdmin {
		if requested := strings.TrimSpace(c.Query("tutorId")); requested != "" {
			return requested, nil
		}
	}
	if claims.TutorID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a tutor")
	}
	return claims.TutorID, nil
}
