package validations

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	domainSchedule "github.com/ymzk/threadpilot/domains/schedule"
	pkgError "github.com/ymzk/threadpilot/pkg/error"
)

func ValidateCreateSchedule(ctx context.Context, request domainSchedule.CreateScheduleRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.AccountID, validation.Required),
		validation.Field(&request.Mode, validation.Required, validation.In(
			string(domainSchedule.ModeTemplate),
			string(domainSchedule.ModeMix),
			string(domainSchedule.ModeAI),
		)),
		validation.Field(&request.IntervalMinutes, validation.Required, validation.Min(1)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
