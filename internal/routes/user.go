package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/handlers"
	"github.com/pushp314/hackarena-backend/internal/middleware"
)

func RegisterUserRoutes(rg gin.IRouter) {
	users := rg.Group("/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.GET("/me/contests", handlers.GetMyContestHistory)
	}
}
