package tasks

import (
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type TaskHandler struct {
	service *TaskService
}

func NewTaskHandler(service *TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

func (h *TaskHandler) Create(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	task, err := h.service.Create(req)
	if err != nil {
		return apperr.Respond(c, err, "Failed to create task")
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *TaskHandler) List(c *fiber.Ctx) error {
	tasks, err := h.service.List(ListFilter{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		AssignedTo: c.Query("assigned_to"),
		Skip:       c.QueryInt("skip", 0),
		Limit:      c.QueryInt("limit", 100),
	})
	if err != nil {
		return apperr.Respond(c, err, "Failed to list tasks")
	}
	return c.JSON(tasks)
}

func (h *TaskHandler) Get(c *fiber.Ctx) error {
	task, err := h.service.Get(c.Params("id"))
	if err != nil {
		return apperr.Respond(c, err, "Failed to get task")
	}
	return c.JSON(task)
}

func (h *TaskHandler) Update(c *fiber.Ctx) error {
	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	task, err := h.service.Update(c.Params("id"), req)
	if err != nil {
		return apperr.Respond(c, err, "Failed to update task")
	}
	return c.JSON(task)
}

func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Params("id")); err != nil {
		return apperr.Respond(c, err, "Failed to delete task")
	}
	return c.JSON(dto.MessageResponse{Message: "Task deleted"})
}

func (h *TaskHandler) Overdue(c *fiber.Ctx) error {
	tasks, err := h.service.Overdue()
	if err != nil {
		return apperr.Respond(c, err, "Failed to list overdue tasks")
	}
	return c.JSON(tasks)
}

func (h *TaskHandler) ByStatus(c *fiber.Ctx) error {
	counts, err := h.service.CountByStatus()
	if err != nil {
		return apperr.Respond(c, err, "Failed to count tasks")
	}
	return c.JSON(counts)
}
