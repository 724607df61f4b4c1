package account

import (
	"context"
	"time"
)

// Account is an owned Threads identity. The core reads it, never writes it;
// administration happens through the OAuth callback and the REST surface.
type Account struct {
	ID            string    `json:"id"`
	ThreadsUserID string    `json:"threads_user_id"`
	AccessToken   string    `json:"-"`
	ProxyURL      string    `json:"proxy_url,omitempty"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type IAccountUsecase interface {
	List(ctx context.Context) ([]Account, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
}
