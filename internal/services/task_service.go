package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevinpb-93/employee-tracking-system/internal/models"
)

type taskStore interface {
	CreateTask(ctx context.Context, task *models.Task) error
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, taskID int64) error
	GetTaskByID(ctx context.Context, taskID int64) (*models.Task, error)
	ListTasks(ctx context.Context) ([]models.Task, error)
	UpsertCompletion(ctx context.Context, userID string, taskID int64, date time.Time, completedAt time.Time) (*models.TaskCompletion, error)
	ListCompletions(ctx context.Context, userID string, date *time.Time) ([]models.TaskCompletion, error)
	CreateEvidence(ctx context.Context, evidence *models.TaskEvidence) error
	GetEvidenceByID(ctx context.Context, evidenceID string) (*models.TaskEvidence, error)
	ListEvidence(ctx context.Context, userID string, taskID int64, date *time.Time) ([]models.TaskEvidence, error)
}

type TaskService struct {
	taskRepo       taskStore
	storage        StorageService
	evidenceLimits UploadLimits
}

func NewTaskService(taskRepo taskStore, storage StorageService, evidenceLimits UploadLimits) *TaskService {
	return &TaskService{
		taskRepo:       taskRepo,
		storage:        storage,
		evidenceLimits: evidenceLimits,
	}
}

type TaskInput struct {
	Name     string
	Period   string
	Deadline string
}

func validateTaskInput(input TaskInput) error {
	name := strings.TrimSpace(input.Name)
	if len(name) < 3 {
		return fmt.Errorf("%w: task name must have at least 3 characters", ErrInvalidInput)
	}
	switch input.Period {
	case models.PeriodEntry, models.PeriodMidday, models.PeriodExit:
	default:
		return fmt.Errorf("%w: period must be entry, midday or exit", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Deadline) == "" {
		return fmt.Errorf("%w: deadline is required", ErrInvalidInput)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, role string, input TaskInput) (*models.Task, error) {
	if role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}

	task := &models.Task{
		Name:     strings.TrimSpace(input.Name),
		Period:   input.Period,
		Deadline: strings.TrimSpace(input.Deadline),
	}
	if err := s.taskRepo.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, role string, taskID int64, input TaskInput) (*models.Task, error) {
	if role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if taskID <= 0 {
		return nil, ErrInvalidInput
	}
	if err := validateTaskInput(input); err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:       taskID,
		Name:     strings.TrimSpace(input.Name),
		Period:   input.Period,
		Deadline: strings.TrimSpace(input.Deadline),
	}
	if err := s.taskRepo.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, role string, taskID int64) error {
	if role != models.RoleAdmin {
		return ErrForbidden
	}
	if taskID <= 0 {
		return ErrInvalidInput
	}

	if err := s.taskRepo.DeleteTask(ctx, taskID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *TaskService) ListTasks(ctx context.Context) ([]models.Task, error) {
	return s.taskRepo.ListTasks(ctx)
}

// MarkTaskCompleted appends a completion timestamp to the employee's record
// for the task and day.
func (s *TaskService) MarkTaskCompleted(
	ctx context.Context,
	actorID string,
	role string,
	userID string,
	taskID int64,
	date time.Time,
	completedAt time.Time,
) (*models.TaskCompletion, error) {
	if userID == "" || taskID <= 0 {
		return nil, ErrInvalidInput
	}
	if role != models.RoleAdmin && actorID != userID {
		return nil, ErrForbidden
	}

	if _, err := s.taskRepo.GetTaskByID(ctx, taskID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.taskRepo.UpsertCompletion(ctx, userID, taskID, date, completedAt)
}

func (s *TaskService) ListCompletions(
	ctx context.Context,
	actorID string,
	role string,
	userID string,
	date *time.Time,
) ([]models.TaskCompletion, error) {
	if role != models.RoleAdmin {
		userID = actorID
	}
	return s.taskRepo.ListCompletions(ctx, userID, date)
}

type EvidenceInput struct {
	UserID           string
	TaskID           int64
	TaskCompletionID string
	Observation      *string
	File             FileUpload
}

// UploadEvidence stores the evidence image and then the row. A failed row
// insert deletes the just-uploaded blob so the bucket never accumulates
// unreferenced objects.
func (s *TaskService) UploadEvidence(
	ctx context.Context,
	actorID string,
	role string,
	input EvidenceInput,
) (*models.TaskEvidence, error) {
	if input.UserID == "" || input.TaskID <= 0 || input.TaskCompletionID == "" {
		return nil, ErrInvalidInput
	}
	if len(input.File.Content) == 0 {
		return nil, fmt.Errorf("%w: evidence image is required", ErrInvalidInput)
	}
	if role != models.RoleAdmin && actorID != input.UserID {
		return nil, ErrForbidden
	}
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}

	ext := strings.ToLower(filepath.Ext(input.File.Filename))
	upload := input.File
	upload.Filename = fmt.Sprintf("evidence_%d_%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)
	folder := fmt.Sprintf("%s/%d", input.UserID, input.TaskID)

	stored, err := s.storage.Upload(ctx, folder, upload, s.evidenceLimits)
	if err != nil {
		return nil, err
	}

	evidence := &models.TaskEvidence{
		UserID:           input.UserID,
		TaskID:           input.TaskID,
		TaskCompletionID: input.TaskCompletionID,
		ImageURL:         stored.URL,
		Observation:      input.Observation,
	}
	if err := s.taskRepo.CreateEvidence(ctx, evidence); err != nil {
		if cleanupErr := s.storage.DeleteFile(ctx, stored.URL); cleanupErr != nil {
			log.Printf("evidence cleanup: %s left for manual reconciliation: %v", stored.URL, cleanupErr)
		}
		return nil, err
	}

	return evidence, nil
}

// GetEvidenceDownloadURL resolves a short-lived signed URL for one stored
// evidence image. Employees can only fetch their own.
func (s *TaskService) GetEvidenceDownloadURL(
	ctx context.Context,
	actorID string,
	role string,
	evidenceID string,
) (string, error) {
	if evidenceID == "" {
		return "", ErrInvalidInput
	}
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}

	evidence, err := s.taskRepo.GetEvidenceByID(ctx, evidenceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if role != models.RoleAdmin && actorID != evidence.UserID {
		return "", ErrForbidden
	}

	return s.storage.GetSignedURL(ctx, evidence.ImageURL)
}

func (s *TaskService) ListEvidence(
	ctx context.Context,
	actorID string,
	role string,
	userID string,
	taskID int64,
	date *time.Time,
) ([]models.TaskEvidence, error) {
	if userID == "" || taskID <= 0 {
		return nil, ErrInvalidInput
	}
	if role != models.RoleAdmin && actorID != userID {
		return nil, ErrForbidden
	}
	return s.taskRepo.ListEvidence(ctx, userID, taskID, date)
}
