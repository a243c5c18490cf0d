package appointments

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type AppointmentHandler struct {
	service *AppointmentService
}

func NewAppointmentHandler(service *AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

func (h *AppointmentHandler) Create(c *fiber.Ctx) error {
	var req CreateAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	appt, err := h.service.Create(req)
	if err != nil {
		return apperr.Respond(c, err, "Failed to create appointment")
	}
	return c.Status(fiber.StatusCreated).JSON(appt)
}

func (h *AppointmentHandler) List(c *fiber.Ctx) error {
	f := ListFilter{
		Status: c.Query("status"),
		Skip:   c.QueryInt("skip", 0),
		Limit:  c.QueryInt("limit", 100),
	}
	var err error
	if f.FromDate, err = queryTime(c, "from_date"); err != nil {
		return apperr.Respond(c, err, "Invalid date filter")
	}
	if f.ToDate, err = queryTime(c, "to_date"); err != nil {
		return apperr.Respond(c, err, "Invalid date filter")
	}

	appts, err := h.service.List(f)
	if err != nil {
		return apperr.Respond(c, err, "Failed to list appointments")
	}
	return c.JSON(appts)
}

func (h *AppointmentHandler) Get(c *fiber.Ctx) error {
	appt, err := h.service.Get(c.Params("id"))
	if err != nil {
		return apperr.Respond(c, err, "Failed to get appointment")
	}
	return c.JSON(appt)
}

func (h *AppointmentHandler) Update(c *fiber.Ctx) error {
	var req UpdateAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	appt, err := h.service.Update(c.Params("id"), req)
	if err != nil {
		return apperr.Respond(c, err, "Failed to update appointment")
	}
	return c.JSON(appt)
}

func (h *AppointmentHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Params("id")); err != nil {
		return apperr.Respond(c, err, "Failed to delete appointment")
	}
	return c.JSON(dto.MessageResponse{Message: "Appointment deleted"})
}

func (h *AppointmentHandler) Next3Days(c *fiber.Ctx) error {
	appts, err := h.service.UpcomingWithin(3)
	if err != nil {
		return apperr.Respond(c, err, "Failed to list upcoming appointments")
	}
	return c.JSON(appts)
}

func (h *AppointmentHandler) ThisWeek(c *fiber.Ctx) error {
	appts, err := h.service.ThisWeek()
	if err != nil {
		return apperr.Respond(c, err, "Failed to list appointments of the week")
	}
	return c.JSON(appts)
}

func (h *AppointmentHandler) MarkReminderSent(c *fiber.Ctx) error {
	appt, err := h.service.MarkReminderSent(c.Params("id"), c.QueryInt("days", 1))
	if err != nil {
		return apperr.Respond(c, err, "Failed to mark reminder")
	}
	return c.JSON(appt)
}

// queryTime parses an optional RFC 3339 or YYYY-MM-DD query value.
func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, &apperr.ValidationError{Fields: map[string]string{key: "must be RFC 3339 or YYYY-MM-DD"}}
}
