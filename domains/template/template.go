package template

import (
	"context"
	"time"
)

// Template is one unit of publishable content. MediaURL may carry several
// URLs separated by newlines, commas or spaces. TimeStart/TimeEnd bound the
// daily posting window in "HH:MM[:SS]" form; empty means unbounded.
type Template struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Body      string    `json:"body"`
	MediaURL  string    `json:"media_url,omitempty"`
	TimeStart string    `json:"time_start,omitempty"`
	TimeEnd   string    `json:"time_end,omitempty"`
	Used      bool      `json:"used"`
	UsedAt    time.Time `json:"used_at"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateTemplateRequest struct {
	AccountID string `json:"account_id"`
	Body      string `json:"body"`
	MediaURL  string `json:"media_url"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
}

type ITemplateUsecase interface {
	Create(ctx context.Context, req CreateTemplateRequest) (Template, error)
	List(ctx context.Context, accountID string) ([]Template, error)
	Delete(ctx context.Context, id string) error
}
