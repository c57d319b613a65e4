package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kevinpb-93/employee-tracking-system/internal/models"
)

type attendanceApplicationService interface {
	MarkTime(ctx context.Context, actorID string, role string, userID string, date time.Time, period string, timeValue string) (*models.TimeRecord, error)
	ListTimeRecords(ctx context.Context, actorID string, role string, userID string, date *time.Time) ([]models.TimeRecord, error)
}

type AttendanceHandler struct {
	service attendanceApplicationService
}

func NewAttendanceHandler(service attendanceApplicationService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

type markTimeRequest struct {
	UserID string `json:"user_id"`
	Period string `json:"period"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

func (h *AttendanceHandler) MarkTime(c *fiber.Ctx) error {
	actorID, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req markTimeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" {
		req.UserID = actorID
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, expected YYYY-MM-DD"})
		}
		date = parsed
	}

	markedAt := req.Time
	if markedAt == "" {
		markedAt = time.Now().Format("15:04:05")
	}

	record, err := h.service.MarkTime(c.Context(), actorID, role, req.UserID, date, req.Period, markedAt)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"record": record})
}

func (h *AttendanceHandler) ListTimeRecords(c *fiber.Ctx) error {
	actorID, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	date, err := parseDateQuery(c.Query("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, expected YYYY-MM-DD"})
	}

	records, err := h.service.ListTimeRecords(c.Context(), actorID, role, c.Query("user_id"), date)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"records": records})
}
