package apperr

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/dto"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

// HTTPStatus maps an error of the taxonomy to a response status.
func HTTPStatus(err error) int {
	var (
		notFound   *NotFoundError
		external   *ExternalServiceError
		source     *SourceUnavailableError
		parse      *ParseError
		configErr  *ConfigurationError
		validation *ValidationError
	)
	switch {
	case errors.Is(err, ErrNotConnected):
		return fiber.StatusConflict
	case errors.As(err, &notFound):
		return fiber.StatusNotFound
	case errors.As(err, &validation):
		return fiber.StatusBadRequest
	case errors.As(err, &parse):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &source):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &external):
		return fiber.StatusBadGateway
	case errors.As(err, &configErr):
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

// Respond writes err as a dto.ErrorResponse. Unclassified errors are logged
// and hidden behind fallback; configuration and remote failures are reported
// to Sentry when a hub is attached to the request.
func Respond(c *fiber.Ctx, err error, fallback string) error {
	status := HTTPStatus(err)
	message := err.Error()

	var (
		external  *ExternalServiceError
		source    *SourceUnavailableError
		configErr *ConfigurationError
	)
	reportable := errors.As(err, &external) || errors.As(err, &source) || errors.As(err, &configErr)

	if status == fiber.StatusInternalServerError && !errors.As(err, &configErr) {
		slog.Error(fallback, "method", c.Method(), "path", c.Path(), "error", err)
		message = fallback
		reportable = true
	}

	if reportable {
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("path", c.Path())
				hub.CaptureException(err)
			})
		}
	}

	return c.Status(status).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}
