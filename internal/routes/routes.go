package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	healthHandler *handlers.HealthHandler,
	dashboardHandler *handlers.DashboardHandler,
	plugins []apps.Plugin,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Public plugin routes (OAuth callbacks) must be mounted before the
	// protected group so the JWT middleware never sees them.
	for _, p := range plugins {
		if pp, ok := p.(apps.PublicPlugin); ok {
			pp.RegisterPublicRoutes(api, db, cfg)
		}
	}

	protected := api.Group("", middleware.JWTProtected(cfg))
	protected.Get("/dashboard/stats", dashboardHandler.Stats)
	for _, p := range plugins {
		p.RegisterRoutes(protected, db, cfg)
	}
}
