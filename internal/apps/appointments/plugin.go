package appointments

import (
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AppointmentsPlugin struct{}

func New() *AppointmentsPlugin {
	return &AppointmentsPlugin{}
}

func (p *AppointmentsPlugin) ID() string { return "appointments" }

func (p *AppointmentsPlugin) Models() []interface{} {
	return []interface{}{&Appointment{}}
}

func (p *AppointmentsPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewAppointmentService(db)
	handler := NewAppointmentHandler(svc)

	router.Get("/appointments/upcoming/next-3-days", handler.Next3Days)
	router.Get("/appointments/upcoming/this-week", handler.ThisWeek)
	router.Post("/appointments", handler.Create)
	router.Get("/appointments", handler.List)
	router.Get("/appointments/:id", handler.Get)
	router.Put("/appointments/:id", handler.Update)
	router.Delete("/appointments/:id", handler.Delete)
	router.Post("/appointments/:id/mark-reminder-sent", handler.MarkReminderSent)
}
