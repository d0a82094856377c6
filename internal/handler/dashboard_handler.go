package handler

import (
	"strconv"

	"go-fund-admin/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetAuthorizationStats returns counts of the authorization model
// Query params: days (default 30)
// GET /api/v1/dashboard/stats
func (h *DashboardHandler) GetAuthorizationStats(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "30"))
	if err != nil || days <= 0 {
		days = 30
	}

	stats, err := h.service.GetAuthorizationStats(c.UserContext(), days)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(stats)
}
