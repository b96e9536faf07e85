package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/middleware"
)

// NewRouter builds the engine with the global middleware chain and every route.
func NewRouter() *gin.Engine {
	r := gin.New()

	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.GeneralRateLimit())

	r.GET("/health", health)

	api := r.Group("/api")
	{
		RegisterContestRoutes(api)
		RegisterAdminRoutes(api)
		RegisterUserRoutes(api)
	}
	return r
}

// health reports database and Redis status.
func health(c *gin.Context) {
	dbStatus := "ok"
	if !database.Healthy() {
		dbStatus = "error"
	}

	redisStatus := "not configured"
	if database.Redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		redisStatus = "ok"
		if err := database.Redis.Ping(ctx).Err(); err != nil {
			redisStatus = "error"
		}
	}

	status, code := "ok", http.StatusOK
	if dbStatus != "ok" {
		status, code = "down", http.StatusServiceUnavailable
	} else if redisStatus == "error" {
		status = "degraded"
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}
