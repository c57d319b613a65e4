package models

import "time"

type Task struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Period    string    `json:"period"`
	Deadline  string    `json:"deadline"`
	CreatedAt time.Time `json:"created_at"`
}

type TaskCompletion struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	TaskID          int64       `json:"task_id"`
	Date            time.Time   `json:"date"`
	Completions     []time.Time `json:"completions"`
	LastCompletedAt time.Time   `json:"last_completed_at"`
	Task            *Task       `json:"task,omitempty"`
}

type TaskEvidence struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	TaskID           int64     `json:"task_id"`
	TaskCompletionID string    `json:"task_completion_id"`
	ImageURL         string    `json:"image_url"`
	Observation      *string   `json:"observation"`
	CreatedAt        time.Time `json:"created_at"`
}
