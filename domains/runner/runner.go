package runner

import (
	"context"
	"errors"
)

// ErrRunInProgress is returned when another invocation holds the run lock.
var ErrRunInProgress = errors.New("another run is already in progress")

// PublishResult identifies what the platform created for one attempt.
type PublishResult struct {
	PostID       string   `json:"post_id"`
	ContainerIDs []string `json:"container_ids,omitempty"`
}

// RunResult summarizes the processing of a single schedule.
type RunResult struct {
	ScheduleID string `json:"schedule"`
	OK         bool   `json:"ok"`
	Dry        bool   `json:"dry,omitempty"`
	Reason     string `json:"reason,omitempty"`
	PostID     string `json:"post_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RunSummary is the response of one coordinator invocation. Ran counts the
// schedules selected as due, including ones that were skipped.
type RunSummary struct {
	Ran     int         `json:"ran"`
	Results []RunResult `json:"results"`
}

type IRunnerUsecase interface {
	RunDue(ctx context.Context, dryRun bool) (RunSummary, error)
}
