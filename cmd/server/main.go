package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/appointments"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/calendar"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/stock"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/tasks"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/cache"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/google"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout, optional rotating file)
	baseHandler := logging.Setup(logging.FileOptions{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set, running in single-user mode")
	}
	if cfg.TokenEncryptionKey == "" {
		slog.Warn("TOKEN_ENCRYPTION_KEY not set, OAuth tokens are stored unencrypted")
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	// Migrate shared models
	if err := database.MigrateShared(database.DB); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}

	// Database log handler (ERROR+ async batch)
	dbLogHandler := logging.NewDBHandler(database.DB, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(baseHandler, dbLogHandler)))

	// Log cleanup
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Services
	tokenOpts := []services.TokenManagerOption{
		services.WithTokenCipher(services.NewTokenCipher(cfg.TokenEncryptionKey)),
	}
	rdb := cache.Connect(context.Background(), cfg.RedisAddr)
	if rdb != nil {
		tokenOpts = append(tokenOpts, services.WithCredentialCache(cache.NewTokenCache(rdb), cfg.CredentialCacheTTL))
	}
	tokenManager := services.NewTokenManager(database.DB, google.OAuthConfig(cfg), tokenOpts...)
	stateSigner := services.NewStateSigner(cfg.OAuthStateSecret)
	syncHistory := services.NewSyncHistory(database.DB)

	plugins := []apps.Plugin{
		tasks.New(),
		stock.New(syncHistory),
		appointments.New(),
		calendar.New(tokenManager, stateSigner, syncHistory, nil),
	}

	// Migrate plugin models
	for _, p := range plugins {
		if models := p.Models(); len(models) > 0 {
			if err := database.MigrateModels(database.DB, models); err != nil {
				slog.Error("plugin migration failed", "plugin", p.ID(), "error", err)
				os.Exit(1)
			}
			slog.Info("plugin migrated", "plugin", p.ID(), "models", len(models))
		}
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler()
	dashboardHandler := handlers.NewDashboardHandler(database.DB)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, database.DB, healthHandler, dashboardHandler, plugins)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		message := fe.Message
		// Only expose error details for client errors (4xx), not server errors (5xx)
		if fe.Code >= 500 {
			slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
			message = "Internal server error"
		}
		return c.Status(fe.Code).JSON(fiber.Map{
			"error":   true,
			"message": message,
		})
	}
	return apperr.Respond(c, err, "Internal server error")
}
