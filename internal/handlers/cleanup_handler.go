package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kevinpb-93/employee-tracking-system/internal/services"
)

type cleanupApplicationService interface {
	RunManualCleanup(ctx context.Context, role string, daysToKeep int, now time.Time) (*services.SweepReport, error)
}

type CleanupHandler struct {
	service cleanupApplicationService
}

func NewCleanupHandler(service cleanupApplicationService) *CleanupHandler {
	return &CleanupHandler{service: service}
}

type manualCleanupRequest struct {
	DaysToKeep int `json:"days_to_keep"`
}

func (h *CleanupHandler) RunCleanup(c *fiber.Ctx) error {
	_, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req manualCleanupRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	report, err := h.service.RunManualCleanup(c.Context(), role, req.DaysToKeep, time.Now().UTC())
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"report": report})
}
