package usecase

import (
	"context"
	"errors"

	domainAccount "github.com/ymzk/threadpilot/domains/account"
	pkgError "github.com/ymzk/threadpilot/pkg/error"
	"github.com/ymzk/threadpilot/repository"
)

type serviceAccount struct {
	accounts repository.IAccountStore
}

func NewAccountService(accounts repository.IAccountStore) domainAccount.IAccountUsecase {
	return &serviceAccount{accounts: accounts}
}

func (s *serviceAccount) List(ctx context.Context) ([]domainAccount.Account, error) {
	return s.accounts.List(ctx)
}

func (s *serviceAccount) SetEnabled(ctx context.Context, id string, enabled bool) error {
	if id == "" {
		return pkgError.ValidationError("account id is required")
	}
	if err := s.accounts.SetEnabled(ctx, id, enabled); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return pkgError.NotFoundError("account not found")
		}
		return err
	}
	return nil
}
