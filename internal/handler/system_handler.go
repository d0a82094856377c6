package handler

import (
	"go-fund-admin/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SystemHandler struct {
	seeder service.SeedService
}

func NewSystemHandler(seeder service.SeedService) *SystemHandler {
	return &SystemHandler{seeder: seeder}
}

// GET /api/v1/health
func (h *SystemHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Seed creates whatever the default catalog is missing
// POST /api/v1/admin/seed
func (h *SystemHandler) Seed(c *fiber.Ctx) error {
	result, err := h.seeder.Seed(c.UserContext(), actorID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Seed completed",
		"data":    result,
	})
}
