package http

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mapply/mapply/internal/core/domain"
)

// parseID reads the integer id path parameter. Negative ids parse fine and
// simply never match a row.
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidID, raw)
	}
	return id, nil
}

// GetMapEventHandler returns a single map event by id.
func GetMapEventHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c.Params("id"))
		if err != nil {
			return fail(c, err, fiber.StatusNotFound)
		}

		event, err := deps.MapEvents.Get(c.UserContext(), id)
		if err != nil {
			return fail(c, err, fiber.StatusNotFound)
		}
		return c.JSON(event)
	}
}

// ListMapEventsHandler returns every map event as a JSON array.
func ListMapEventsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		events, err := deps.MapEvents.List(c.UserContext())
		if err != nil {
			return fail(c, err, fiber.StatusNotFound)
		}
		if events == nil {
			events = []domain.MapEvent{}
		}
		return c.JSON(events)
	}
}

// CreateMapEventHandler validates the body and stores a new map event.
func CreateMapEventHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		event, err := domain.ParseMapEvent(c.Body())
		if err != nil {
			return fail(c, err, fiber.StatusBadRequest)
		}

		created, err := deps.MapEvents.Create(c.UserContext(), event)
		if err != nil {
			return fail(c, err, fiber.StatusBadRequest)
		}
		return c.JSON(created)
	}
}

// UpdateMapEventHandler overwrites a map event. A missing id is reported
// as 400, not 404.
func UpdateMapEventHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		event, err := domain.ParseMapEvent(c.Body())
		if err != nil {
			return fail(c, err, fiber.StatusBadRequest)
		}

		id, err := parseID(c.Params("id"))
		if err != nil {
			return fail(c, err, fiber.StatusBadRequest)
		}

		updated, err := deps.MapEvents.Update(c.UserContext(), event, id)
		if err != nil {
			return fail(c, err, fiber.StatusBadRequest)
		}
		return c.JSON(updated)
	}
}

// DeleteMapEventHandler removes a map event and returns it as it was.
// A missing id is reported as 400, not 404.
func DeleteMapEventHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c.Params("id"))
		if err != nil {
			return fail(c, err, fiber.StatusBadRequest)
		}

		deleted, err := deps.MapEvents.Delete(c.UserContext(), id)
		if err != nil {
			return fail(c, err, fiber.StatusBadRequest)
		}
		return c.JSON(deleted)
	}
}
