package auth

import (
	"context"

	domainAccount "github.com/ymzk/threadpilot/domains/account"
)

type IAuthUsecase interface {
	// AuthorizeURL builds the Threads OAuth consent redirect.
	AuthorizeURL() (string, error)
	// HandleCallback exchanges the authorization code, upgrades to a
	// long-lived token when possible and upserts the account.
	HandleCallback(ctx context.Context, code string) (domainAccount.Account, error)
}
