package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ymzk/threadpilot/config"
	domainAccount "github.com/ymzk/threadpilot/domains/account"
	domainAuth "github.com/ymzk/threadpilot/domains/auth"
	"github.com/ymzk/threadpilot/infrastructure/threads"
	pkgError "github.com/ymzk/threadpilot/pkg/error"
	"github.com/ymzk/threadpilot/repository"
)

// threadsScopes is the minimum consent needed to publish on behalf of an
// account.
var threadsScopes = []string{"threads_basic", "threads_content_publish"}

// OAuthClient is the slice of the platform client the handshake needs.
type OAuthClient interface {
	AuthorizeURL(clientID, redirectURI string, scopes []string) string
	ExchangeCodeForToken(ctx context.Context, clientID, clientSecret, redirectURI, code string) (threads.TokenResponse, error)
	ExchangeToLongLived(ctx context.Context, clientSecret, accessToken string) (threads.TokenResponse, error)
}

type serviceAuth struct {
	client   OAuthClient
	accounts repository.IAccountStore
}

func NewAuthService(client OAuthClient, accounts repository.IAccountStore) domainAuth.IAuthUsecase {
	return &serviceAuth{
		client:   client,
		accounts: accounts,
	}
}

func (s *serviceAuth) AuthorizeURL() (string, error) {
	if config.ThreadsAppID == "" || config.ThreadsRedirectURL == "" {
		return "", pkgError.InternalServerError("threads app credentials are not configured")
	}
	return s.client.AuthorizeURL(config.ThreadsAppID, config.ThreadsRedirectURL, threadsScopes), nil
}

// HandleCallback exchanges the authorization code, upgrades to a long-lived
// token when the platform allows it and stores the account enabled.
func (s *serviceAuth) HandleCallback(ctx context.Context, code string) (domainAccount.Account, error) {
	if code == "" {
		return domainAccount.Account{}, pkgError.ValidationError("code is required")
	}

	token, err := s.client.ExchangeCodeForToken(ctx, config.ThreadsAppID, config.ThreadsAppSecret, config.ThreadsRedirectURL, code)
	if err != nil {
		return domainAccount.Account{}, err
	}

	userID := token.UserIDString()
	if userID == "" {
		return domainAccount.Account{}, pkgError.InternalServerError("token exchange returned no user id")
	}

	accessToken := token.AccessToken
	if longLived, err := s.client.ExchangeToLongLived(ctx, config.ThreadsAppSecret, accessToken); err != nil {
		logrus.WithError(err).Warn("[AUTH] Long-lived exchange failed, keeping short-lived token")
	} else if longLived.AccessToken != "" {
		accessToken = longLived.AccessToken
	}

	acct, err := s.accounts.Upsert(ctx, domainAccount.Account{
		ID:            uuid.NewString(),
		ThreadsUserID: userID,
		AccessToken:   accessToken,
		Enabled:       true,
	})
	if err != nil {
		return domainAccount.Account{}, err
	}

	logrus.WithField("account", acct.ID).Info("[AUTH] Account connected")
	return acct, nil
}
