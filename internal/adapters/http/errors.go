package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mapply/mapply/internal/core/domain"
)

// emptyStatus ends the request with status and no body. Failure responses
// never carry error details.
func emptyStatus(c *fiber.Ctx, status int) error {
	c.Status(status)
	c.Response().ResetBody()
	return nil
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
// missing is the status used for ErrNotFound, which differs between routes.
func statusFor(err error, missing int) int {
	switch {
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return missing
	case errors.Is(err, domain.ErrStorage):
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

// fail logs err with the request-scoped logger and writes the mapped status.
func fail(c *fiber.Ctx, err error, missing int) error {
	status := statusFor(err, missing)
	log := LoggerFromCtx(c.UserContext())
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed", "path", c.Path(), "status", status, "error", err)
	} else {
		log.Info("request rejected", "path", c.Path(), "status", status, "error", err)
	}
	return emptyStatus(c, status)
}
