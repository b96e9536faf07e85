package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders adds various security headers to the response
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		// JSON API only.
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		// Contest answers must not be served from shared caches.
		c.Header("Cache-Control", "no-store")

		c.Next()
	}
}
