package validations

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	domainPost "github.com/ymzk/threadpilot/domains/post"
	pkgError "github.com/ymzk/threadpilot/pkg/error"
)

func ValidatePublish(ctx context.Context, request domainPost.PublishRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Text, validation.Required),
		validation.Field(&request.ImageURL, is.RequestURL),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
