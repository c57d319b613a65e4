package handlers

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kevinpb-93/employee-tracking-system/internal/models"
	"github.com/kevinpb-93/employee-tracking-system/internal/services"
)

type taskApplicationService interface {
	CreateTask(ctx context.Context, role string, input services.TaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, role string, taskID int64, input services.TaskInput) (*models.Task, error)
	DeleteTask(ctx context.Context, role string, taskID int64) error
	ListTasks(ctx context.Context) ([]models.Task, error)
	MarkTaskCompleted(ctx context.Context, actorID string, role string, userID string, taskID int64, date time.Time, completedAt time.Time) (*models.TaskCompletion, error)
	ListCompletions(ctx context.Context, actorID string, role string, userID string, date *time.Time) ([]models.TaskCompletion, error)
	UploadEvidence(ctx context.Context, actorID string, role string, input services.EvidenceInput) (*models.TaskEvidence, error)
	ListEvidence(ctx context.Context, actorID string, role string, userID string, taskID int64, date *time.Time) ([]models.TaskEvidence, error)
	GetEvidenceDownloadURL(ctx context.Context, actorID string, role string, evidenceID string) (string, error)
}

type TaskHandler struct {
	service taskApplicationService
}

func NewTaskHandler(service taskApplicationService) *TaskHandler {
	return &TaskHandler{service: service}
}

type taskRequest struct {
	Name     string `json:"name"`
	Period   string `json:"period"`
	Deadline string `json:"deadline"`
}

func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	_, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	task, err := h.service.CreateTask(c.Context(), role, services.TaskInput{
		Name:     req.Name,
		Period:   req.Period,
		Deadline: req.Deadline,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"task": task})
}

func (h *TaskHandler) UpdateTask(c *fiber.Ctx) error {
	_, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	taskID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || taskID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task id"})
	}

	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	task, err := h.service.UpdateTask(c.Context(), role, taskID, services.TaskInput{
		Name:     req.Name,
		Period:   req.Period,
		Deadline: req.Deadline,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"task": task})
}

func (h *TaskHandler) DeleteTask(c *fiber.Ctx) error {
	_, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	taskID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || taskID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task id"})
	}

	if err := h.service.DeleteTask(c.Context(), role, taskID); err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.service.ListTasks(c.Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

type completeTaskRequest struct {
	UserID string `json:"user_id"`
	TaskID int64  `json:"task_id"`
	Date   string `json:"date"`
}

func (h *TaskHandler) CompleteTask(c *fiber.Ctx) error {
	actorID, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req completeTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" {
		req.UserID = actorID
	}

	now := time.Now().UTC()
	date := now.Truncate(24 * time.Hour)
	if req.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, expected YYYY-MM-DD"})
		}
		date = parsed
	}

	completion, err := h.service.MarkTaskCompleted(c.Context(), actorID, role, req.UserID, req.TaskID, date, now)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"completion": completion})
}

func (h *TaskHandler) ListCompletions(c *fiber.Ctx) error {
	actorID, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	date, err := parseDateQuery(c.Query("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, expected YYYY-MM-DD"})
	}

	completions, err := h.service.ListCompletions(c.Context(), actorID, role, c.Query("user_id"), date)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"completions": completions})
}

// UploadEvidence expects multipart form data with the evidence image under
// the "file" field.
func (h *TaskHandler) UploadEvidence(c *fiber.Ctx) error {
	actorID, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	taskID, err := strconv.ParseInt(c.FormValue("task_id"), 10, 64)
	if err != nil || taskID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task_id"})
	}

	input := services.EvidenceInput{
		UserID:           c.FormValue("user_id"),
		TaskID:           taskID,
		TaskCompletionID: c.FormValue("task_completion_id"),
	}
	if input.UserID == "" {
		input.UserID = actorID
	}
	if observation := c.FormValue("observation"); observation != "" {
		input.Observation = &observation
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Evidence file is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to open uploaded file"})
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read uploaded file"})
	}

	input.File = services.FileUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}

	evidence, err := h.service.UploadEvidence(c.Context(), actorID, role, input)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"evidence": evidence})
}

func (h *TaskHandler) ListEvidence(c *fiber.Ctx) error {
	actorID, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	taskID, err := strconv.ParseInt(c.Query("task_id"), 10, 64)
	if err != nil || taskID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task_id"})
	}

	date, err := parseDateQuery(c.Query("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, expected YYYY-MM-DD"})
	}

	userID := c.Query("user_id")
	if userID == "" {
		userID = actorID
	}

	evidence, err := h.service.ListEvidence(c.Context(), actorID, role, userID, taskID, date)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"evidence": evidence})
}

// GetEvidenceURL returns a short-lived signed URL for one evidence image.
func (h *TaskHandler) GetEvidenceURL(c *fiber.Ctx) error {
	actorID, role, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	evidenceID := c.Params("id")
	if evidenceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid evidence id"})
	}

	signedURL, err := h.service.GetEvidenceDownloadURL(c.Context(), actorID, role, evidenceID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"url": signedURL})
}
