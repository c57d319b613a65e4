package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kevinpb-93/employee-tracking-system/internal/models"
)

type AttendanceRepository struct {
	db DBTX
}

func NewAttendanceRepository(db DBTX) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func timeColumnForPeriod(period string) (string, error) {
	switch period {
	case models.PeriodEntry:
		return "entry_time", nil
	case models.PeriodMidday:
		return "midday_time", nil
	case models.PeriodExit:
		return "exit_time", nil
	default:
		return "", fmt.Errorf("unknown period %q", period)
	}
}

// UpsertTimeRecord sets one period column on the row for (userID, date),
// creating the row on first mark of the day.
func (r *AttendanceRepository) UpsertTimeRecord(
	ctx context.Context,
	userID string,
	date time.Time,
	period string,
	timeValue string,
) (*models.TimeRecord, error) {
	column, err := timeColumnForPeriod(period)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO time_records (user_id, date, %s)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, date)
		DO UPDATE SET %s = EXCLUDED.%s
		RETURNING id, user_id, date, entry_time, midday_time, exit_time, created_at
	`, column, column, column)

	var record models.TimeRecord
	err = r.db.QueryRow(ctx, query, userID, date, timeValue).Scan(
		&record.ID,
		&record.UserID,
		&record.Date,
		&record.EntryTime,
		&record.MiddayTime,
		&record.ExitTime,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// ListTimeRecords filters by user and/or date; empty values match everything.
func (r *AttendanceRepository) ListTimeRecords(
	ctx context.Context,
	userID string,
	date *time.Time,
) ([]models.TimeRecord, error) {
	query := `
		SELECT id, user_id, date, entry_time, midday_time, exit_time, created_at
		FROM time_records
		WHERE ($1 = '' OR user_id::text = $1)
		  AND ($2::date IS NULL OR date = $2)
		ORDER BY date DESC, user_id
	`

	rows, err := r.db.Query(ctx, query, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.TimeRecord, 0)
	for rows.Next() {
		var record models.TimeRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Date,
			&record.EntryTime,
			&record.MiddayTime,
			&record.ExitTime,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *AttendanceRepository) DeleteTimeRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM time_records WHERE date < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
