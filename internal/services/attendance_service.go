package services

import (
	"context"
	"time"

	"github.com/kevinpb-93/employee-tracking-system/internal/models"
)

type timeRecordStore interface {
	UpsertTimeRecord(ctx context.Context, userID string, date time.Time, period string, timeValue string) (*models.TimeRecord, error)
	ListTimeRecords(ctx context.Context, userID string, date *time.Time) ([]models.TimeRecord, error)
}

type AttendanceService struct {
	attendanceRepo timeRecordStore
}

func NewAttendanceService(attendanceRepo timeRecordStore) *AttendanceService {
	return &AttendanceService{attendanceRepo: attendanceRepo}
}

// MarkTime records one period mark for the employee's day. Repeated marks
// for the same period overwrite the previous value on the same row.
func (s *AttendanceService) MarkTime(
	ctx context.Context,
	actorID string,
	role string,
	userID string,
	date time.Time,
	period string,
	timeValue string,
) (*models.TimeRecord, error) {
	if userID == "" || timeValue == "" {
		return nil, ErrInvalidInput
	}
	switch period {
	case models.PeriodEntry, models.PeriodMidday, models.PeriodExit:
	default:
		return nil, ErrInvalidInput
	}
	if role != models.RoleAdmin && actorID != userID {
		return nil, ErrForbidden
	}

	return s.attendanceRepo.UpsertTimeRecord(ctx, userID, date, period, timeValue)
}

// ListTimeRecords returns records filtered by user and/or date. Employees
// only see their own.
func (s *AttendanceService) ListTimeRecords(
	ctx context.Context,
	actorID string,
	role string,
	userID string,
	date *time.Time,
) ([]models.TimeRecord, error) {
	if role != models.RoleAdmin {
		userID = actorID
	}
	return s.attendanceRepo.ListTimeRecords(ctx, userID, date)
}
