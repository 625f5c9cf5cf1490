package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readyTimeout = 3 * time.Second

// readinessCheck tests one backing service. A nil run func means the service
// is not configured; only required services fail readiness when absent.
type readinessCheck struct {
	name     string
	required bool
	run      func(ctx context.Context) error
}

func (d *Dependencies) readinessChecks() []readinessCheck {
	checks := []readinessCheck{
		{name: "database", required: true},
		{name: "cache"},
		{name: "nats"},
	}
	if d.DB != nil {
		checks[0].run = d.DB.Ping
	}
	if d.Cache != nil {
		checks[1].run = d.Cache.Ping
	}
	if d.NATS != nil {
		nc := d.NATS
		checks[2].run = func(context.Context) error {
			if !nc.IsConnected() {
				return errDisconnected
			}
			return nil
		}
	}
	return checks
}

var errDisconnected = errors.New("disconnected")

// HealthHandler reports process liveness only; it never touches backends.
func HealthHandler(deps *Dependencies) fiber.Handler {
	started := time.Now()
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(started).Round(time.Second).String(),
			"version": "dev",
		})
	}
}

// ReadyHandler runs every readiness check and answers 503 if a required
// service is missing or any configured one fails.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		results := make(map[string]string)
		ready := true
		for _, check := range deps.readinessChecks() {
			switch {
			case check.run == nil:
				results[check.name] = "not configured"
				ready = ready && !check.required
			default:
				if err := check.run(ctx); err != nil {
					results[check.name] = "error: " + err.Error()
					ready = false
				} else {
					results[check.name] = "ok"
				}
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": results})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": results})
	}
}
