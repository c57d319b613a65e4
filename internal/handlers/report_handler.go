package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kevinpb-93/employee-tracking-system/internal/models"
)

type reportUserLister interface {
	ListEmployees(ctx context.Context) ([]models.User, error)
}

type ReportHandler struct {
	users      reportUserLister
	attendance attendanceApplicationService
	tasks      taskApplicationService
}

func NewReportHandler(users reportUserLister, attendance attendanceApplicationService, tasks taskApplicationService) *ReportHandler {
	return &ReportHandler{
		users:      users,
		attendance: attendance,
		tasks:      tasks,
	}
}

type employeeReportRow struct {
	User        models.UserSummary      `json:"user"`
	TimeRecord  *models.TimeRecord      `json:"time_record"`
	Completions []models.TaskCompletion `json:"completions"`
}

// DailyReport assembles one day of attendance and task activity across every
// employee.
func (h *ReportHandler) DailyReport(c *fiber.Ctx) error {
	actorID, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, expected YYYY-MM-DD"})
		}
		date = parsed
	}

	employees, err := h.users.ListEmployees(c.Context())
	if err != nil {
		return mapServiceError(c, err)
	}

	records, err := h.attendance.ListTimeRecords(c.Context(), actorID, role, "", &date)
	if err != nil {
		return mapServiceError(c, err)
	}
	recordsByUser := make(map[string]*models.TimeRecord, len(records))
	for i := range records {
		recordsByUser[records[i].UserID] = &records[i]
	}

	completions, err := h.tasks.ListCompletions(c.Context(), actorID, role, "", &date)
	if err != nil {
		return mapServiceError(c, err)
	}
	completionsByUser := make(map[string][]models.TaskCompletion)
	for _, completion := range completions {
		completionsByUser[completion.UserID] = append(completionsByUser[completion.UserID], completion)
	}

	tasks, err := h.tasks.ListTasks(c.Context())
	if err != nil {
		return mapServiceError(c, err)
	}

	rows := make([]employeeReportRow, 0, len(employees))
	for _, employee := range employees {
		rows = append(rows, employeeReportRow{
			User:        employee.Summary(),
			TimeRecord:  recordsByUser[employee.ID],
			Completions: completionsByUser[employee.ID],
		})
	}

	return c.JSON(fiber.Map{
		"date":      date.Format(dateLayout),
		"employees": rows,
		"tasks":     tasks,
	})
}
