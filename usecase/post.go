package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainAccount "github.com/ymzk/threadpilot/domains/account"
	domainOutcome "github.com/ymzk/threadpilot/domains/outcome"
	domainPost "github.com/ymzk/threadpilot/domains/post"
	pkgError "github.com/ymzk/threadpilot/pkg/error"
	"github.com/ymzk/threadpilot/repository"
	"github.com/ymzk/threadpilot/validations"
)

type servicePost struct {
	accounts  repository.IAccountStore
	outcomes  repository.IOutcomeStore
	publisher Publisher
}

func NewPostService(accounts repository.IAccountStore, outcomes repository.IOutcomeStore, publisher Publisher) domainPost.IPostUsecase {
	return &servicePost{
		accounts:  accounts,
		outcomes:  outcomes,
		publisher: publisher,
	}
}

// Publish posts once on behalf of an account. Without an explicit account id
// the most recently updated enabled account is used.
func (s *servicePost) Publish(ctx context.Context, req domainPost.PublishRequest) (domainPost.PublishResponse, error) {
	if err := validations.ValidatePublish(ctx, req); err != nil {
		return domainPost.PublishResponse{}, err
	}

	acct, err := s.resolveAccount(ctx, req.AccountID)
	if err != nil {
		return domainPost.PublishResponse{}, err
	}

	mediaURLs := SplitMediaURLs(req.ImageURL)
	step := "text"
	if len(mediaURLs) > 0 {
		step = "media"
	}

	result, err := s.publisher.Publish(ctx, acct.AccessToken, req.Text, mediaURLs)
	s.logOutcome(ctx, acct.ID, req.Text, mediaURLs, result, err)
	if err != nil {
		return domainPost.PublishResponse{}, err
	}

	return domainPost.PublishResponse{
		Step:      step,
		AccountID: acct.ID,
		Result:    result,
	}, nil
}

func (s *servicePost) resolveAccount(ctx context.Context, id string) (domainAccount.Account, error) {
	var (
		acct domainAccount.Account
		err  error
	)
	if id != "" {
		acct, err = s.accounts.GetEnabled(ctx, id)
	} else {
		acct, err = s.accounts.MostRecentEnabled(ctx)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domainAccount.Account{}, pkgError.NotFoundError("no enabled account available")
		}
		return domainAccount.Account{}, err
	}
	return acct, nil
}

func (s *servicePost) logOutcome(ctx context.Context, accountID, text string, mediaURLs []string, result any, pubErr error) {
	payloadJSON, _ := json.Marshal(domainOutcome.Payload{Text: text, MediaURLs: mediaURLs})
	if pubErr != nil {
		result = map[string]string{"error": pubErr.Error()}
	}
	resultJSON, _ := json.Marshal(result)

	rec := domainOutcome.Record{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Action:    domainOutcome.ActionPost,
		Payload:   payloadJSON,
		Result:    resultJSON,
		OK:        pubErr == nil,
		CreatedAt: time.Now(),
	}
	if err := s.outcomes.Append(ctx, rec); err != nil {
		logrus.WithError(err).Error("[POST] Failed to append outcome record")
	}
}
