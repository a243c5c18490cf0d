package calendar

import (
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CalendarPlugin struct {
	tokens    *services.TokenManager
	state     *services.StateSigner
	history   *services.SyncHistory
	newClient ClientFactory
	handler   *CalendarHandler
}

// New builds the plugin. A nil factory uses the Google Calendar API.
func New(tokens *services.TokenManager, state *services.StateSigner, history *services.SyncHistory, newClient ClientFactory) *CalendarPlugin {
	if newClient == nil {
		newClient = GoogleClientFactory
	}
	return &CalendarPlugin{tokens: tokens, state: state, history: history, newClient: newClient}
}

func (p *CalendarPlugin) ID() string { return "calendar" }

// Models is empty: appointments own the table and tokens and sync runs are
// shared models.
func (p *CalendarPlugin) Models() []interface{} {
	return nil
}

func (p *CalendarPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	handler := p.handlerFor(db, cfg)

	router.Get("/calendar/auth-url", handler.AuthURL)
	router.Get("/calendar/status", handler.Status)
	router.Get("/calendar/history", handler.History)
	router.Post("/calendar/sync", handler.Sync)
	router.Post("/calendar/appointments/:id/push", handler.Push)
	router.Delete("/calendar/appointments/:id/event", handler.DeleteEvent)
	router.Delete("/calendar/connection", handler.Disconnect)
	router.Get("/calendar/calendars/:id", handler.GetCalendar)
}

func (p *CalendarPlugin) RegisterPublicRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	router.Get("/calendar/callback", p.handlerFor(db, cfg).Callback)
}

// handlerFor builds the handler once so public and protected routes share
// one engine and therefore one set of per-user locks.
func (p *CalendarPlugin) handlerFor(db *gorm.DB, cfg *config.Config) *CalendarHandler {
	if p.handler == nil {
		engine := NewEngine(db, p.tokens, p.newClient, p.history, EngineConfig{
			TimeZone:   cfg.CalendarTimeZone,
			WindowDays: cfg.SyncWindowDays,
		})
		p.handler = NewCalendarHandler(engine, p.tokens, p.state, p.history)
	}
	return p.handler
}
