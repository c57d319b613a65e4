package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevinpb-93/employee-tracking-system/internal/models"
)

type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) CreateTask(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (name, period, deadline)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, task.Name, task.Period, task.Deadline).
		Scan(&task.ID, &task.CreatedAt)
}

func (r *TaskRepository) UpdateTask(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET name = $2, period = $3, deadline = $4
		WHERE id = $1
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query, task.ID, task.Name, task.Period, task.Deadline).
		Scan(&task.CreatedAt)
}

func (r *TaskRepository) DeleteTask(ctx context.Context, taskID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *TaskRepository) GetTaskByID(ctx context.Context, taskID int64) (*models.Task, error) {
	query := `
		SELECT id, name, period, deadline, created_at
		FROM tasks
		WHERE id = $1
	`
	var task models.Task
	err := r.db.QueryRow(ctx, query, taskID).Scan(
		&task.ID,
		&task.Name,
		&task.Period,
		&task.Deadline,
		&task.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &task, nil
}

func (r *TaskRepository) ListTasks(ctx context.Context) ([]models.Task, error) {
	query := `
		SELECT id, name, period, deadline, created_at
		FROM tasks
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		var task models.Task
		if err := rows.Scan(
			&task.ID,
			&task.Name,
			&task.Period,
			&task.Deadline,
			&task.CreatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

// UpsertCompletion appends completedAt to the completion list for
// (userID, taskID, date), creating the row on the first completion.
func (r *TaskRepository) UpsertCompletion(
	ctx context.Context,
	userID string,
	taskID int64,
	date time.Time,
	completedAt time.Time,
) (*models.TaskCompletion, error) {
	query := `
		INSERT INTO task_completions (user_id, task_id, date, completions, last_completed_at)
		VALUES ($1, $2, $3, ARRAY[$4::timestamptz], $4)
		ON CONFLICT (user_id, task_id, date)
		DO UPDATE SET
			completions = task_completions.completions || EXCLUDED.completions,
			last_completed_at = EXCLUDED.last_completed_at
		RETURNING id, user_id, task_id, date, completions, last_completed_at
	`

	var completion models.TaskCompletion
	err := r.db.QueryRow(ctx, query, userID, taskID, date, completedAt).Scan(
		&completion.ID,
		&completion.UserID,
		&completion.TaskID,
		&completion.Date,
		&completion.Completions,
		&completion.LastCompletedAt,
	)
	if err != nil {
		return nil, err
	}

	return &completion, nil
}

func (r *TaskRepository) ListCompletions(
	ctx context.Context,
	userID string,
	date *time.Time,
) ([]models.TaskCompletion, error) {
	query := `
		SELECT
			tc.id, tc.user_id, tc.task_id, tc.date, tc.completions, tc.last_completed_at,
			t.id, t.name, t.period, t.deadline, t.created_at
		FROM task_completions tc
		JOIN tasks t ON t.id = tc.task_id
		WHERE ($1 = '' OR tc.user_id::text = $1)
		  AND ($2::date IS NULL OR tc.date = $2)
		ORDER BY tc.date DESC, tc.task_id
	`

	rows, err := r.db.Query(ctx, query, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completions := make([]models.TaskCompletion, 0)
	for rows.Next() {
		var completion models.TaskCompletion
		var task models.Task
		if err := rows.Scan(
			&completion.ID,
			&completion.UserID,
			&completion.TaskID,
			&completion.Date,
			&completion.Completions,
			&completion.LastCompletedAt,
			&task.ID,
			&task.Name,
			&task.Period,
			&task.Deadline,
			&task.CreatedAt,
		); err != nil {
			return nil, err
		}
		completion.Task = &task
		completions = append(completions, completion)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return completions, nil
}

func (r *TaskRepository) DeleteCompletionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM task_completions WHERE date < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TaskRepository) CreateEvidence(ctx context.Context, evidence *models.TaskEvidence) error {
	query := `
		INSERT INTO task_evidence (user_id, task_id, task_completion_id, image_url, observation)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query,
		evidence.UserID,
		evidence.TaskID,
		evidence.TaskCompletionID,
		evidence.ImageURL,
		evidence.Observation,
	).Scan(&evidence.ID, &evidence.CreatedAt)
}

func (r *TaskRepository) GetEvidenceByID(ctx context.Context, evidenceID string) (*models.TaskEvidence, error) {
	query := `
		SELECT id, user_id, task_id, task_completion_id, image_url, observation, created_at
		FROM task_evidence
		WHERE id = $1
	`

	var evidence models.TaskEvidence
	err := r.db.QueryRow(ctx, query, evidenceID).Scan(
		&evidence.ID,
		&evidence.UserID,
		&evidence.TaskID,
		&evidence.TaskCompletionID,
		&evidence.ImageURL,
		&evidence.Observation,
		&evidence.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &evidence, nil
}

func (r *TaskRepository) ListEvidence(
	ctx context.Context,
	userID string,
	taskID int64,
	date *time.Time,
) ([]models.TaskEvidence, error) {
	query := `
		SELECT id, user_id, task_id, task_completion_id, image_url, observation, created_at
		FROM task_evidence
		WHERE user_id = $1
		  AND task_id = $2
		  AND ($3::date IS NULL OR created_at::date = $3)
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID, taskID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evidence := make([]models.TaskEvidence, 0)
	for rows.Next() {
		var item models.TaskEvidence
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.TaskID,
			&item.TaskCompletionID,
			&item.ImageURL,
			&item.Observation,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		evidence = append(evidence, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return evidence, nil
}
