package models

import "time"

const (
	PeriodEntry  = "entry"
	PeriodMidday = "midday"
	PeriodExit   = "exit"
)

type TimeRecord struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Date       time.Time `json:"date"`
	EntryTime  *string   `json:"entry_time"`
	MiddayTime *string   `json:"midday_time"`
	ExitTime   *string   `json:"exit_time"`
	CreatedAt  time.Time `json:"created_at"`
}
