package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	pkgError "github.com/ymzk/threadpilot/pkg/error"
	"github.com/ymzk/threadpilot/pkg/utils"
)

// Recovery converts handler panics into JSON error responses. Typed
// application errors keep their own status and code; anything else becomes
// a 500.
func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			err := recover()
			if err != nil {
				var res utils.ResponseData
				res.Status = 500
				res.Code = "INTERNAL_SERVER_ERROR"
				res.Message = fmt.Sprintf("%v", err)

				logrus.Errorf("Panic recovered in middleware: %v", err)

				appErr, isAppError := err.(pkgError.GenericError)
				if isAppError {
					res.Status = appErr.StatusCode()
					res.Code = appErr.ErrCode()
					res.Message = appErr.Error()
				}

				_ = ctx.Status(res.Status).JSON(res)
			}
		}()

		return ctx.Next()
	}
}
