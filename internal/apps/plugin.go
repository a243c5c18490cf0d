package apps

import (
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Plugin defines the interface every feature module must implement.
type Plugin interface {
	// ID returns the unique module identifier.
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts module routes on the given Fiber group.
	// The group is already prefixed with /api and has JWT middleware applied.
	RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}

// PublicPlugin extends Plugin with routes that must be reachable without a
// bearer token, such as OAuth redirect targets.
type PublicPlugin interface {
	Plugin

	// RegisterPublicRoutes mounts routes on the /api group without JWT middleware.
	RegisterPublicRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}
