package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevinpb-93/employee-tracking-system/internal/models"
)

type stubTaskRepo struct {
	createErr         error
	updateErr         error
	deleteErr         error
	getTask           *models.Task
	getErr            error
	listTasks         []models.Task
	upsertResult      *models.TaskCompletion
	upsertErr         error
	completions       []models.TaskCompletion
	createEvidenceErr error
	evidence          []models.TaskEvidence
	evidenceByID      *models.TaskEvidence
	evidenceByIDErr   error
	lastCompletionUID string
	lastCompletedAt   time.Time
}

func (r *stubTaskRepo) CreateTask(_ context.Context, task *models.Task) error {
	task.ID = 1
	return r.createErr
}

func (r *stubTaskRepo) UpdateTask(_ context.Context, _ *models.Task) error {
	return r.updateErr
}

func (r *stubTaskRepo) DeleteTask(_ context.Context, _ int64) error {
	return r.deleteErr
}

func (r *stubTaskRepo) GetTaskByID(_ context.Context, _ int64) (*models.Task, error) {
	return r.getTask, r.getErr
}

func (r *stubTaskRepo) ListTasks(_ context.Context) ([]models.Task, error) {
	return r.listTasks, nil
}

func (r *stubTaskRepo) UpsertCompletion(_ context.Context, userID string, _ int64, _ time.Time, completedAt time.Time) (*models.TaskCompletion, error) {
	r.lastCompletionUID = userID
	r.lastCompletedAt = completedAt
	return r.upsertResult, r.upsertErr
}

func (r *stubTaskRepo) ListCompletions(_ context.Context, _ string, _ *time.Time) ([]models.TaskCompletion, error) {
	return r.completions, nil
}

func (r *stubTaskRepo) CreateEvidence(_ context.Context, evidence *models.TaskEvidence) error {
	if r.createEvidenceErr != nil {
		return r.createEvidenceErr
	}
	evidence.ID = "ev-1"
	return nil
}

func (r *stubTaskRepo) GetEvidenceByID(_ context.Context, _ string) (*models.TaskEvidence, error) {
	return r.evidenceByID, r.evidenceByIDErr
}

func (r *stubTaskRepo) ListEvidence(_ context.Context, _ string, _ int64, _ *time.Time) ([]models.TaskEvidence, error) {
	return r.evidence, nil
}

func TestCreateTaskValidatesInput(t *testing.T) {
	service := NewTaskService(&stubTaskRepo{}, nil, UploadLimits{})

	_, err := service.CreateTask(context.Background(), models.RoleEmployee, TaskInput{Name: "Limpieza", Period: models.PeriodEntry, Deadline: "09:00"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for employees, got %v", err)
	}

	_, err = service.CreateTask(context.Background(), models.RoleAdmin, TaskInput{Name: "ab", Period: models.PeriodEntry, Deadline: "09:00"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for short name, got %v", err)
	}

	_, err = service.CreateTask(context.Background(), models.RoleAdmin, TaskInput{Name: "Limpieza", Period: "night", Deadline: "09:00"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad period, got %v", err)
	}

	task, err := service.CreateTask(context.Background(), models.RoleAdmin, TaskInput{Name: "  Limpieza  ", Period: models.PeriodEntry, Deadline: "09:00"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Name != "Limpieza" || task.ID != 1 {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestUpdateTaskMapsMissingRows(t *testing.T) {
	repo := &stubTaskRepo{updateErr: pgx.ErrNoRows}
	service := NewTaskService(repo, nil, UploadLimits{})

	_, err := service.UpdateTask(context.Background(), models.RoleAdmin, 9, TaskInput{Name: "Inventario", Period: models.PeriodExit, Deadline: "18:00"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkTaskCompletedRequiresExistingTask(t *testing.T) {
	repo := &stubTaskRepo{getErr: pgx.ErrNoRows}
	service := NewTaskService(repo, nil, UploadLimits{})

	_, err := service.MarkTaskCompleted(context.Background(), "emp-1", models.RoleEmployee, "emp-1", 9, time.Now(), time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkTaskCompletedScopesEmployees(t *testing.T) {
	repo := &stubTaskRepo{
		getTask:      &models.Task{ID: 9, Name: "Inventario"},
		upsertResult: &models.TaskCompletion{ID: "tc-1", UserID: "emp-1", TaskID: 9},
	}
	service := NewTaskService(repo, nil, UploadLimits{})

	_, err := service.MarkTaskCompleted(context.Background(), "emp-1", models.RoleEmployee, "emp-2", 9, time.Now(), time.Now())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	completedAt := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)
	completion, err := service.MarkTaskCompleted(context.Background(), "emp-1", models.RoleEmployee, "emp-1", 9, completedAt.Truncate(24*time.Hour), completedAt)
	if err != nil {
		t.Fatalf("MarkTaskCompleted: %v", err)
	}
	if completion.ID != "tc-1" || !repo.lastCompletedAt.Equal(completedAt) {
		t.Fatalf("unexpected completion: %+v at %v", completion, repo.lastCompletedAt)
	}
}

func TestUploadEvidenceBuildsScopedPath(t *testing.T) {
	repo := &stubTaskRepo{}
	storage := &stubChatStorage{
		uploadResult: &StoredFile{
			URL:  "https://storage/emp-1/9/evidence_1_abcd1234.jpg",
			Path: "emp-1/9/evidence_1_abcd1234.jpg",
			Size: 4,
		},
	}
	service := NewTaskService(repo, storage, UploadLimits{MaxBytes: 5 << 20})

	evidence, err := service.UploadEvidence(context.Background(), "emp-1", models.RoleEmployee, EvidenceInput{
		UserID:           "emp-1",
		TaskID:           9,
		TaskCompletionID: "tc-1",
		File:             FileUpload{Filename: "photo.JPG", ContentType: "image/jpeg", Content: []byte("1234")},
	})
	if err != nil {
		t.Fatalf("UploadEvidence: %v", err)
	}

	if storage.lastFolder != "emp-1/9" {
		t.Fatalf("unexpected folder: %q", storage.lastFolder)
	}
	if !strings.HasPrefix(storage.lastUpload.Filename, "evidence_") || !strings.HasSuffix(storage.lastUpload.Filename, ".jpg") {
		t.Fatalf("unexpected generated filename: %q", storage.lastUpload.Filename)
	}
	if evidence.ID != "ev-1" || evidence.ImageURL == "" {
		t.Fatalf("unexpected evidence: %+v", evidence)
	}
}

func TestUploadEvidenceDeletesBlobWhenInsertFails(t *testing.T) {
	repo := &stubTaskRepo{createEvidenceErr: errors.New("insert failed")}
	storage := &stubChatStorage{
		uploadResult: &StoredFile{
			URL:  "https://storage/emp-1/9/evidence.jpg",
			Path: "emp-1/9/evidence.jpg",
			Size: 4,
		},
	}
	service := NewTaskService(repo, storage, UploadLimits{})

	_, err := service.UploadEvidence(context.Background(), "emp-1", models.RoleEmployee, EvidenceInput{
		UserID:           "emp-1",
		TaskID:           9,
		TaskCompletionID: "tc-1",
		File:             FileUpload{Filename: "photo.jpg", ContentType: "image/jpeg", Content: []byte("1234")},
	})
	if err == nil {
		t.Fatalf("expected insert error")
	}
	if len(storage.deletedURLs) != 1 || storage.deletedURLs[0] != "https://storage/emp-1/9/evidence.jpg" {
		t.Fatalf("expected blob cleanup, got %v", storage.deletedURLs)
	}
}

func TestGetEvidenceDownloadURLScopesEmployees(t *testing.T) {
	repo := &stubTaskRepo{
		evidenceByID: &models.TaskEvidence{
			ID:       "ev-1",
			UserID:   "emp-1",
			TaskID:   9,
			ImageURL: "https://storage/emp-1/9/evidence.jpg",
		},
	}
	storage := &stubChatStorage{signedURL: "https://storage/signed/evidence.jpg?token=abc"}
	service := NewTaskService(repo, storage, UploadLimits{})

	if _, err := service.GetEvidenceDownloadURL(context.Background(), "emp-2", models.RoleEmployee, "ev-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign evidence, got %v", err)
	}

	signedURL, err := service.GetEvidenceDownloadURL(context.Background(), "emp-1", models.RoleEmployee, "ev-1")
	if err != nil {
		t.Fatalf("GetEvidenceDownloadURL: %v", err)
	}
	if signedURL != storage.signedURL {
		t.Fatalf("unexpected signed url: %q", signedURL)
	}
	if len(storage.signedFor) != 1 || storage.signedFor[0] != repo.evidenceByID.ImageURL {
		t.Fatalf("expected signing of the stored url, got %v", storage.signedFor)
	}
}

func TestGetEvidenceDownloadURLMapsMissingRows(t *testing.T) {
	repo := &stubTaskRepo{evidenceByIDErr: pgx.ErrNoRows}
	service := NewTaskService(repo, &stubChatStorage{}, UploadLimits{})

	if _, err := service.GetEvidenceDownloadURL(context.Background(), "adm-1", models.RoleAdmin, "ev-404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := NewTaskService(repo, nil, UploadLimits{}).GetEvidenceDownloadURL(context.Background(), "adm-1", models.RoleAdmin, "ev-1"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable without storage, got %v", err)
	}
}

func TestListEvidenceScopesEmployees(t *testing.T) {
	service := NewTaskService(&stubTaskRepo{}, nil, UploadLimits{})

	_, err := service.ListEvidence(context.Background(), "emp-1", models.RoleEmployee, "emp-2", 9, nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
