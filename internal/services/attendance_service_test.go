package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kevinpb-93/employee-tracking-system/internal/models"
)

type stubAttendanceRepo struct {
	upsertResult *models.TimeRecord
	upsertErr    error
	listResult   []models.TimeRecord
	lastUserID   string
	lastPeriod   string
	lastTime     string
	listedUserID string
}

func (r *stubAttendanceRepo) UpsertTimeRecord(_ context.Context, userID string, _ time.Time, period string, timeValue string) (*models.TimeRecord, error) {
	r.lastUserID = userID
	r.lastPeriod = period
	r.lastTime = timeValue
	return r.upsertResult, r.upsertErr
}

func (r *stubAttendanceRepo) ListTimeRecords(_ context.Context, userID string, _ *time.Time) ([]models.TimeRecord, error) {
	r.listedUserID = userID
	return r.listResult, nil
}

func TestMarkTimeValidatesPeriod(t *testing.T) {
	service := NewAttendanceService(&stubAttendanceRepo{})

	_, err := service.MarkTime(context.Background(), "emp-1", models.RoleEmployee, "emp-1", time.Now(), "siesta", "14:00:00")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMarkTimeScopesEmployeesToThemselves(t *testing.T) {
	repo := &stubAttendanceRepo{upsertResult: &models.TimeRecord{ID: 1, UserID: "emp-1"}}
	service := NewAttendanceService(repo)

	_, err := service.MarkTime(context.Background(), "emp-1", models.RoleEmployee, "emp-2", time.Now(), models.PeriodEntry, "08:00:00")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	record, err := service.MarkTime(context.Background(), "emp-1", models.RoleEmployee, "emp-1", time.Now(), models.PeriodEntry, "08:00:00")
	if err != nil {
		t.Fatalf("MarkTime: %v", err)
	}
	if record.ID != 1 || repo.lastPeriod != models.PeriodEntry || repo.lastTime != "08:00:00" {
		t.Fatalf("unexpected upsert: %+v period=%q time=%q", record, repo.lastPeriod, repo.lastTime)
	}
}

func TestMarkTimeAllowsAdminForAnyEmployee(t *testing.T) {
	repo := &stubAttendanceRepo{upsertResult: &models.TimeRecord{ID: 2, UserID: "emp-2"}}
	service := NewAttendanceService(repo)

	if _, err := service.MarkTime(context.Background(), "adm-1", models.RoleAdmin, "emp-2", time.Now(), models.PeriodExit, "18:05:00"); err != nil {
		t.Fatalf("MarkTime: %v", err)
	}
	if repo.lastUserID != "emp-2" {
		t.Fatalf("expected upsert for emp-2, got %q", repo.lastUserID)
	}
}

func TestListTimeRecordsForcesEmployeeScope(t *testing.T) {
	repo := &stubAttendanceRepo{}
	service := NewAttendanceService(repo)

	if _, err := service.ListTimeRecords(context.Background(), "emp-1", models.RoleEmployee, "emp-2", nil); err != nil {
		t.Fatalf("ListTimeRecords: %v", err)
	}
	if repo.listedUserID != "emp-1" {
		t.Fatalf("expected scope pinned to actor, got %q", repo.listedUserID)
	}

	if _, err := service.ListTimeRecords(context.Background(), "adm-1", models.RoleAdmin, "", nil); err != nil {
		t.Fatalf("ListTimeRecords admin: %v", err)
	}
	if repo.listedUserID != "" {
		t.Fatalf("expected admin wildcard scope, got %q", repo.listedUserID)
	}
}
