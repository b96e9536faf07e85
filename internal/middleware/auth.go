package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
	"github.com/pushp314/hackarena-backend/pkg/utils"
)

func bearerClaims(c *gin.Context) (*utils.Claims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, apperrors.Unauthorized("Authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, apperrors.Unauthorized("Invalid authorization header format")
	}

	claims, err := utils.ValidateToken(parts[1])
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid or expired token")
	}
	if claims.UserID == "" {
		return nil, apperrors.Unauthorized("Token has no subject")
	}
	return claims, nil
}

// AuthMiddleware requires a valid bearer token. Tokens are issued by the
// platform's auth service; only the signature and claims are checked here.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set("userId", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// OptionalAuthMiddleware attempts to validate the token if present, but does NOT abort if missing or invalid.
// It sets "userId" in context only if validation succeeds.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := bearerClaims(c); err == nil {
			c.Set("userId", claims.UserID)
			c.Set("role", claims.Role)
		}
		c.Next()
	}
}
