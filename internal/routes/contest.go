package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/config"
	"github.com/pushp314/hackarena-backend/internal/handlers"
	"github.com/pushp314/hackarena-backend/internal/middleware"
)

func RegisterContestRoutes(r gin.IRouter) {
	contests := r.Group("/contests")
	{
		// Public (optional auth adds the caller's participation status)
		contests.GET("", middleware.OptionalAuthMiddleware(), handlers.ListContests)
		contests.GET("/:id", middleware.OptionalAuthMiddleware(), handlers.GetContest)

		protected := contests.Group("")
		protected.Use(middleware.AuthMiddleware(), middleware.MaintenanceMode())
		{
			protected.POST("/:id/register", handlers.RegisterForContest)
			protected.POST("/:id/enter", handlers.EnterContest)
			protected.POST("/:id/violations", handlers.RecordViolation)
			protected.POST("/:id/finalize", handlers.FinalizeContest)
			protected.GET("/:id/results", handlers.GetResults)
			protected.GET("/:id/leaderboard", handlers.GetLeaderboard)

			questions := protected.Group("/:id/questions/:questionId")
			{
				questions.PUT("/draft", handlers.SaveDraft)
				questions.POST("/answer", middleware.SubmitRateLimit(), handlers.SubmitAnswer)
				questions.POST("/submit", middleware.SubmitRateLimit(), handlers.SubmitCode)
				questions.POST("/run",
					middleware.ExecuteRateLimit(),
					middleware.QuotaPerMinute("run", config.AppConfig.RunCodePerMin),
					handlers.RunCode)
			}
		}
	}
}
