package rest

import (
	"github.com/gofiber/fiber/v2"

	domainAccount "github.com/ymzk/threadpilot/domains/account"
	"github.com/ymzk/threadpilot/pkg/utils"
)

type Account struct {
	Service domainAccount.IAccountUsecase
}

func InitRestAccount(app fiber.Router, service domainAccount.IAccountUsecase) Account {
	rest := Account{Service: service}
	app.Get("/accounts", rest.List)
	app.Put("/accounts/:id/enabled", rest.SetEnabled)
	return rest
}

func (controller *Account) List(c *fiber.Ctx) error {
	accounts, err := controller.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch accounts",
		Results: accounts,
	})
}

func (controller *Account) SetEnabled(c *fiber.Ctx) error {
	var request struct {
		Enabled bool `json:"enabled"`
	}
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	err = controller.Service.SetEnabled(c.UserContext(), c.Params("id"), request.Enabled)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success update account",
	})
}
