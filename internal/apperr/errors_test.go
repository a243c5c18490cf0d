package apperr

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("loading: %w", NotFound("appointment", 42))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "loading: appointment 42 not found", err.Error())
}

func TestExternalServiceError_Unwraps(t *testing.T) {
	cause := errors.New("rate limited")
	err := External("google_calendar", "events.insert", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestValidationError_SortedMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"title": "is required", "priority": "must be one of low medium high urgent"}}
	assert.Equal(t, "validation failed: priority: must be one of low medium high urgent; title: is required", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrNotConnected, fiber.StatusConflict},
		{fmt.Errorf("wrapped: %w", ErrNotConnected), fiber.StatusConflict},
		{NotFound("task", 1), fiber.StatusNotFound},
		{External("google_sheets", "values.get", errors.New("boom")), fiber.StatusBadGateway},
		{&SourceUnavailableError{Source: "sheet", Err: errors.New("dial")}, fiber.StatusServiceUnavailable},
		{&ParseError{Row: 2, Column: "quantity", Value: "abc"}, fiber.StatusUnprocessableEntity},
		{&ConfigurationError{Setting: "GOOGLE_CLIENT_ID"}, fiber.StatusInternalServerError},
		{&ValidationError{Fields: map[string]string{"x": "y"}}, fiber.StatusBadRequest},
		{errors.New("other"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestRespond_HidesUnclassifiedErrors(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return Respond(c, errors.New("db exploded"), "Failed to load")
	})
	app.Get("/config", func(c *fiber.Ctx) error {
		return Respond(c, &ConfigurationError{Setting: "GOOGLE_SHEETS_API_KEY"}, "Failed to import")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body := make([]byte, 256)
	n, _ := resp.Body.Read(body)
	assert.Contains(t, string(body[:n]), "Failed to load")
	assert.NotContains(t, string(body[:n]), "db exploded")

	resp, err = app.Test(httptest.NewRequest("GET", "/config", nil))
	require.NoError(t, err)
	n, _ = resp.Body.Read(body)
	assert.Contains(t, string(body[:n]), "GOOGLE_SHEETS_API_KEY is not configured")
}
