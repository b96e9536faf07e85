package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/config"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
)

// MaintenanceMode blocks participants while organizers pause the arena.
// Admins pass through so they can inspect and finish contests.
func MaintenanceMode() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.AppConfig.MaintenanceMode || IsAdmin(c) {
			c.Next()
			return
		}
		abortWithError(c, &apperrors.AppError{
			Code:      http.StatusServiceUnavailable,
			Reason:    apperrors.ReasonInfrastructure,
			Message:   "The arena is under maintenance. Please try again shortly.",
			Retryable: true,
		})
	}
}
