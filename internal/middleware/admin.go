package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/models"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
)

// IsAdmin reports whether the authenticated caller carries the ADMIN role.
func IsAdmin(c *gin.Context) bool {
	return c.GetString("role") == string(models.RoleAdmin)
}

// AdminOnly middleware restricts access to users with ADMIN role only
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("userId"); !exists {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}
		if !IsAdmin(c) {
			abortWithError(c, apperrors.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}
