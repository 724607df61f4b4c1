package post

import (
	"context"

	domainRunner "github.com/ymzk/threadpilot/domains/runner"
)

// PublishRequest is the manual single-post surface. AccountID may be empty,
// in which case the most recently updated enabled account is used.
type PublishRequest struct {
	AccountID string `json:"account_id" form:"account_id"`
	Text      string `json:"text" form:"text"`
	ImageURL  string `json:"image_url" form:"image_url"`
}

type PublishResponse struct {
	Step      string                     `json:"step"`
	AccountID string                     `json:"account_id"`
	Result    domainRunner.PublishResult `json:"result"`
}

type IPostUsecase interface {
	Publish(ctx context.Context, req PublishRequest) (PublishResponse, error)
}
