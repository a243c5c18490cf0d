package middleware

import (
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows the configured dashboard origins. Content-Disposition is
// exposed so browsers can read the file name of xlsx exports.
func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Authorization, Accept",
		AllowMethods:  "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders: "Content-Disposition, X-Request-ID",
		MaxAge:        600,
	})
}
