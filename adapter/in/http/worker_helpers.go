package http

import (
	"context"
	"errors"
	"time"

	"exchange_calendar/core/port/in"
	"exchange_calendar/pkg/apperr"
	"exchange_calendar/pkg/resilience"

	"github.com/gofiber/fiber/v2"
)

// serviceError maps calendar service failures to API errors. Anything
// unrecognised came from the mail server.
func serviceError(err error, entityID string) error {
	switch {
	case errors.Is(err, in.ErrEntityNotFound):
		return apperr.NotFound("calendar entity " + entityID)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperr.ServiceUnavailable("exchange", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Timeout("exchange request")
	default:
		return apperr.ExternalError("exchange", err)
	}
}

// queryTime parses an RFC 3339 query parameter.
func queryTime(c *fiber.Ctx, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, apperr.MissingField(name)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperr.InvalidInput(name, "expected RFC 3339 timestamp")
	}
	return t, nil
}
