package validations

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	domainTemplate "github.com/ymzk/threadpilot/domains/template"
	pkgError "github.com/ymzk/threadpilot/pkg/error"
	"github.com/ymzk/threadpilot/pkg/timewindow"
)

// clockRule accepts "HH:MM" or "HH:MM:SS"; empty means unbounded.
var clockRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, ok := timewindow.ParseClock(s); !ok {
		return errors.New("must be a valid HH:MM or HH:MM:SS clock")
	}
	return nil
})

func ValidateCreateTemplate(ctx context.Context, request domainTemplate.CreateTemplateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.AccountID, validation.Required),
		validation.Field(&request.Body, validation.Required),
		validation.Field(&request.TimeStart, clockRule),
		validation.Field(&request.TimeEnd, clockRule),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
