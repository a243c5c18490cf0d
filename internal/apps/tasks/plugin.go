package tasks

import (
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TasksPlugin struct{}

func New() *TasksPlugin {
	return &TasksPlugin{}
}

func (p *TasksPlugin) ID() string { return "tasks" }

func (p *TasksPlugin) Models() []interface{} {
	return []interface{}{&Task{}}
}

func (p *TasksPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewTaskService(db)
	handler := NewTaskHandler(svc)

	router.Get("/tasks/stats/overdue", handler.Overdue)
	router.Get("/tasks/stats/by-status", handler.ByStatus)
	router.Post("/tasks", handler.Create)
	router.Get("/tasks", handler.List)
	router.Get("/tasks/:id", handler.Get)
	router.Put("/tasks/:id", handler.Update)
	router.Delete("/tasks/:id", handler.Delete)
}
