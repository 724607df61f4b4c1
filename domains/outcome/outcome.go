package outcome

import (
	"encoding/json"
	"time"
)

// Action is the kind of processing attempt a record describes.
type Action string

const (
	ActionPost Action = "POST"
	ActionSkip Action = "SKIP"
)

// Skip reasons recorded as successful non-error outcomes.
const (
	ReasonTemplateNotFound   = "template_not_found"
	ReasonOutOfTimeWindow    = "out_of_time_window"
	ReasonAccountUnavailable = "account_not_found_or_disabled"
)

// Payload is the snapshot of what a run attempted to publish.
type Payload struct {
	Text         string   `json:"text,omitempty"`
	MediaURLs    []string `json:"media_urls,omitempty"`
	ScheduleID   string   `json:"schedule_id"`
	MinutesOfDay int      `json:"minutes_of_day"`
	Reason       string   `json:"reason,omitempty"`
}

// Record is one immutable processing outcome, written on every path:
// publish success, publish failure, resolver skip and dry run.
type Record struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Action    Action          `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	Result    json.RawMessage `json:"result"`
	OK        bool            `json:"ok"`
	CreatedAt time.Time       `json:"created_at"`
}
