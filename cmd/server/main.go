package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/api"
	"github.com/huddlehq/huddle/internal/auth"
	"github.com/huddlehq/huddle/internal/cache"
	"github.com/huddlehq/huddle/internal/db"
	"github.com/huddlehq/huddle/internal/linkpreview"
	"github.com/huddlehq/huddle/internal/mailer"
	"github.com/huddlehq/huddle/internal/notify"
	"github.com/huddlehq/huddle/internal/storage"
	"github.com/huddlehq/huddle/pkg/config"
	"github.com/huddlehq/huddle/pkg/logging"
	"github.com/huddlehq/huddle/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Huddle API Server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Redis cache (optional; sessions fall back to stateless tokens)
	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisCache != nil {
		defer redisCache.Close()
	}

	// Object storage (optional in development)
	var store *storage.Client
	if cfg.Storage.Endpoint != "" {
		store, err = storage.New(&cfg.Storage)
		if err != nil {
			logger.Fatal("Failed to initialize object storage", zap.Error(err))
		}
	} else {
		logger.Warn("Object storage not configured; upload endpoints disabled")
	}

	repo := db.NewRepository(database.DB)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	sessions := auth.NewSessionStore(redisCache, cfg.Auth.SessionTTL)
	mail := mailer.New(&cfg.Mail)
	notifier := notify.New(&cfg.Push, repo)
	previews := linkpreview.NewFetcher(cfg.Preview.FetchTimeout)

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	router := api.NewRouter(api.Deps{
		DB:            database,
		Cache:         redisCache,
		Tokens:        tokens,
		Sessions:      sessions,
		Mail:          mail,
		Notifier:      notifier,
		Storage:       store,
		Previews:      previews,
		ConvertSecret: cfg.Storage.ConvertSecret,
	})
	router.SetupRoutes(engine)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: engine,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
