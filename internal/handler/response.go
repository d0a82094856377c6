package handler

import (
	"log/slog"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/internal/middleware"
	"go-fund-admin/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// respondError writes err with the status of its kind. Internal causes are logged, never returned.
func respondError(c *fiber.Ctx, err error) error {
	status := apperror.HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		slog.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err))
	}
	return c.Status(status).JSON(fiber.Map{"error": apperror.Message(err)})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

// actorID returns the acting user id set by the guard
func actorID(c *fiber.Ctx) string {
	if id, ok := c.Locals(middleware.LocalUserID).(string); ok && id != "" {
		return id
	}
	return service.SystemActor
}

// paramID parses a uuid path parameter
func paramID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional uuid query parameter
func queryID(c *fiber.Ctx, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}
