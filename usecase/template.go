package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainTemplate "github.com/ymzk/threadpilot/domains/template"
	"github.com/ymzk/threadpilot/repository"
	"github.com/ymzk/threadpilot/validations"
)

type serviceTemplate struct {
	templates repository.ITemplateStore
}

func NewTemplateService(templates repository.ITemplateStore) domainTemplate.ITemplateUsecase {
	return &serviceTemplate{templates: templates}
}

func (s *serviceTemplate) Create(ctx context.Context, req domainTemplate.CreateTemplateRequest) (domainTemplate.Template, error) {
	if err := validations.ValidateCreateTemplate(ctx, req); err != nil {
		return domainTemplate.Template{}, err
	}

	tpl := domainTemplate.Template{
		ID:        uuid.NewString(),
		AccountID: req.AccountID,
		Body:      req.Body,
		MediaURL:  req.MediaURL,
		TimeStart: req.TimeStart,
		TimeEnd:   req.TimeEnd,
		CreatedAt: time.Now(),
	}
	if err := s.templates.Create(ctx, tpl); err != nil {
		return domainTemplate.Template{}, err
	}
	return tpl, nil
}

func (s *serviceTemplate) List(ctx context.Context, accountID string) ([]domainTemplate.Template, error) {
	return s.templates.List(ctx, accountID)
}

func (s *serviceTemplate) Delete(ctx context.Context, id string) error {
	return s.templates.Delete(ctx, id)
}
