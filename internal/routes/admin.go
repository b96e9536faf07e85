package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/handlers"
	"github.com/pushp314/hackarena-backend/internal/middleware"
)

func RegisterAdminRoutes(rg gin.IRouter) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminOnly())

	// Contest Management
	admin.GET("/contests", handlers.ListContests)
	admin.POST("/contests", handlers.AdminCreateContest)
	admin.POST("/contests/:id/questions", handlers.AdminAddQuestion)
	admin.POST("/contests/:id/publish", handlers.AdminPublishContest)
	admin.GET("/contests/:id/leaderboard", handlers.GetLeaderboard)
}
