package handlers

import (
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/appointments"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/stock"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/tasks"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// dashboardHorizonDays is the "coming soon" window for appointments.
const dashboardHorizonDays = 3

type DashboardHandler struct {
	tasks        *tasks.TaskService
	stock        *stock.StockService
	appointments *appointments.AppointmentService
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{
		tasks:        tasks.NewTaskService(db),
		stock:        stock.NewStockService(db),
		appointments: appointments.NewAppointmentService(db),
	}
}

// Stats aggregates counters across tasks, stock and appointments.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.collect()
	if err != nil {
		return apperr.Respond(c, err, "Failed to compute dashboard stats")
	}
	return c.JSON(stats)
}

func (h *DashboardHandler) collect() (*dto.DashboardStats, error) {
	byStatus, err := h.tasks.CountByStatus()
	if err != nil {
		return nil, err
	}
	overdue, err := h.tasks.CountOverdue()
	if err != nil {
		return nil, err
	}
	stockTotal, err := h.stock.Count()
	if err != nil {
		return nil, err
	}
	lowStock, err := h.stock.CountLowStock()
	if err != nil {
		return nil, err
	}
	apptTotal, err := h.appointments.Count()
	if err != nil {
		return nil, err
	}
	upcoming, soon, err := h.appointments.CountUpcoming(dashboardHorizonDays)
	if err != nil {
		return nil, err
	}

	var taskTotal int64
	for _, n := range byStatus {
		taskTotal += n
	}

	return &dto.DashboardStats{
		TotalTasks:            taskTotal,
		TasksByStatus:         byStatus,
		TasksOverdue:          overdue,
		TotalStockItems:       stockTotal,
		LowStockItems:         lowStock,
		TotalAppointments:     apptTotal,
		UpcomingAppointments:  upcoming,
		AppointmentsNext3Days: soon,
	}, nil
}
