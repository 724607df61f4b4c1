package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ymzk/threadpilot/config"
	"github.com/ymzk/threadpilot/pkg/utils"
)

type Health struct{}

func InitRestHealth(app fiber.Router) Health {
	rest := Health{}
	app.Get("/health", rest.Status)
	return rest
}

func (controller *Health) Status(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "OK",
		Results: map[string]string{"version": config.AppVersion},
	})
}
