package schedule

import (
	"context"
	"time"
)

// Mode selects how a run picks content for a schedule.
type Mode string

const (
	ModeTemplate Mode = "TEMPLATE"
	ModeMix      Mode = "MIX"
	ModeAI       Mode = "AI"
)

// Schedule drives recurring publishing for one account. NextRun and LastRun
// are the only fields the run coordinator mutates.
type Schedule struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	Mode            Mode      `json:"mode"`
	IntervalMinutes int       `json:"interval_minutes"`
	Active          bool      `json:"active"`
	LastRun         time.Time `json:"last_run"`
	NextRun         time.Time `json:"next_run"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CreateScheduleRequest struct {
	AccountID       string `json:"account_id"`
	Mode            string `json:"mode"`
	IntervalMinutes int    `json:"interval_minutes"`
}

type IScheduleUsecase interface {
	Create(ctx context.Context, req CreateScheduleRequest) (Schedule, error)
	List(ctx context.Context) ([]Schedule, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}
