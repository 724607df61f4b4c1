package rest

import (
	"github.com/gofiber/fiber/v2"

	domainAuth "github.com/ymzk/threadpilot/domains/auth"
	"github.com/ymzk/threadpilot/pkg/utils"
)

type Auth struct {
	Service domainAuth.IAuthUsecase
}

func InitRestAuth(app fiber.Router, service domainAuth.IAuthUsecase) Auth {
	rest := Auth{Service: service}
	app.Get("/auth/threads/start", rest.Start)
	app.Get("/auth/threads/callback", rest.Callback)
	return rest
}

// Start redirects the browser to the platform consent screen.
func (controller *Auth) Start(c *fiber.Ctx) error {
	url, err := controller.Service.AuthorizeURL()
	utils.PanicIfNeeded(err)

	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

func (controller *Auth) Callback(c *fiber.Ctx) error {
	acct, err := controller.Service.HandleCallback(c.UserContext(), c.Query("code"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success connect account",
		Results: acct,
	})
}
