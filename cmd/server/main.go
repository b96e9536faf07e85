package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/config"
	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/migrations"
	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/pushp314/hackarena-backend/internal/routes"
	"github.com/pushp314/hackarena-backend/internal/services"
	"github.com/pushp314/hackarena-backend/pkg/logger"
)

func main() {
	// 0. Load Config & Initialize Logger
	config.LoadConfig()
	env := config.AppConfig.Env
	logger.Init(env)

	logger.Info().Str("environment", env).Msg("Starting HackArena contest backend...")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.AppConfig.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is required")
	}

	// 1. Connect Database & Redis
	database.Connect()
	database.InitRedis()

	// 2. Migrations
	if err := migrations.NewMigrator(database.DB).Run(); err != nil {
		logger.Fatal().Err(err).Msg("Database migrations failed")
	}
	// Columns added to the models after the first migration.
	if err := database.DB.AutoMigrate(models.AllModels()...); err != nil {
		logger.Fatal().Err(err).Msg("Failed to sync schema")
	}
	logger.Info().Msg("Database migrations complete")

	// 3. Sandbox
	services.SetSandbox(services.NewPistonSandbox(config.AppConfig.PistonURL, config.AppConfig.SandboxGrace()))

	// 4. Background jobs
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go services.NewDeadlineSweeper(config.AppConfig.SweepInterval()).Start(ctx)

	// 5. Start Server with graceful shutdown
	srv := &http.Server{
		Addr:         ":" + config.AppConfig.Port,
		Handler:      routes.NewRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // grading runs every test case synchronously
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", config.AppConfig.Port).Str("env", env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server gracefully...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
