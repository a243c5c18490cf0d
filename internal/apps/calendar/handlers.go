package calendar

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type CalendarHandler struct {
	engine  *Engine
	tokens  *services.TokenManager
	state   *services.StateSigner
	history *services.SyncHistory
}

func NewCalendarHandler(engine *Engine, tokens *services.TokenManager, state *services.StateSigner, history *services.SyncHistory) *CalendarHandler {
	return &CalendarHandler{engine: engine, tokens: tokens, state: state, history: history}
}

func (h *CalendarHandler) AuthURL(c *fiber.Ctx) error {
	state, err := h.state.Sign(identity.GetUserID(c))
	if err != nil {
		return apperr.Respond(c, err, "Failed to start authorization")
	}
	url, err := h.tokens.AuthCodeURL(state)
	if err != nil {
		return apperr.Respond(c, err, "Failed to start authorization")
	}
	return c.JSON(dto.AuthURLResponse{AuthURL: url})
}

// Callback is the OAuth redirect target. It runs without bearer auth; the
// user is recovered from the signed state.
func (h *CalendarHandler) Callback(c *fiber.Ctx) error {
	if reason := c.Query("error"); reason != "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Authorization denied: " + reason,
		})
	}

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "code query parameter is required",
		})
	}
	userID, err := h.state.Verify(c.Query("state"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	if err := h.tokens.ExchangeCode(c.UserContext(), userID, code); err != nil {
		return apperr.Respond(c, err, "Failed to connect Google Calendar")
	}

	slog.Info("google calendar connected", "user_id", userID)
	return c.JSON(dto.MessageResponse{Message: "Google Calendar connected"})
}

func (h *CalendarHandler) Status(c *fiber.Ctx) error {
	userID := identity.GetUserID(c)
	connected, err := h.tokens.IsConnected(c.UserContext(), userID)
	if err != nil {
		return apperr.Respond(c, err, "Failed to read connection status")
	}

	status := dto.ConnectionStatus{IsConnected: connected}
	last, err := h.history.LastSuccess(c.UserContext(), userID, models.SyncKindCalendarPull)
	if err != nil {
		return apperr.Respond(c, err, "Failed to read connection status")
	}
	if last != nil {
		finished := last.FinishedAt
		status.LastSynced = &finished
	}
	return c.JSON(status)
}

func (h *CalendarHandler) Sync(c *fiber.Ctx) error {
	var req dto.SyncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid request body",
			})
		}
	}
	if req.CalendarID == "" {
		req.CalendarID = c.Query("calendar_id")
	}

	res, err := h.engine.SyncEvents(c.UserContext(), identity.GetUserID(c), SyncOptions{
		CalendarID: req.CalendarID,
		FromDate:   req.FromDate,
		ToDate:     req.ToDate,
	})
	if err != nil {
		return apperr.Respond(c, err, "Calendar sync failed")
	}
	return c.JSON(dto.SyncResponse{
		Imported: res.Imported,
		Updated:  res.Updated,
		Skipped:  res.Skipped,
		Total:    res.Total,
	})
}

func (h *CalendarHandler) Push(c *fiber.Ctx) error {
	res, err := h.engine.PushToRemote(c.UserContext(), identity.GetUserID(c), c.Params("id"), c.Query("calendar_id"))
	if err != nil {
		return apperr.Respond(c, err, "Failed to push appointment")
	}

	msg := "Event updated in Google Calendar"
	if res.Created {
		msg = "Event created in Google Calendar"
	}
	return c.JSON(dto.PushResponse{Message: msg, ExternalEventID: res.ExternalEventID, Link: res.Link})
}

func (h *CalendarHandler) DeleteEvent(c *fiber.Ctx) error {
	if err := h.engine.DeleteRemoteEvent(c.UserContext(), identity.GetUserID(c), c.Params("id")); err != nil {
		return apperr.Respond(c, err, "Failed to delete calendar event")
	}
	return c.JSON(dto.MessageResponse{Message: "Event deleted from Google Calendar"})
}

func (h *CalendarHandler) Disconnect(c *fiber.Ctx) error {
	if err := h.tokens.Disconnect(c.UserContext(), identity.GetUserID(c)); err != nil {
		return apperr.Respond(c, err, "Failed to disconnect Google Calendar")
	}
	return c.JSON(dto.MessageResponse{Message: "Google Calendar disconnected"})
}

func (h *CalendarHandler) GetCalendar(c *fiber.Ctx) error {
	cal, err := h.engine.GetCalendar(c.UserContext(), identity.GetUserID(c), c.Params("id"))
	if err != nil {
		return apperr.Respond(c, err, "Failed to get calendar")
	}
	return c.JSON(dto.CalendarInfo{ID: cal.Id, Summary: cal.Summary, TimeZone: cal.TimeZone})
}

func (h *CalendarHandler) History(c *fiber.Ctx) error {
	runs, err := h.history.List(c.UserContext(), identity.GetUserID(c), c.QueryInt("limit", 20))
	if err != nil {
		return apperr.Respond(c, err, "Failed to list sync history")
	}
	return c.JSON(runs)
}
