package rest

import (
	"github.com/gofiber/fiber/v2"

	domainTemplate "github.com/ymzk/threadpilot/domains/template"
	"github.com/ymzk/threadpilot/pkg/utils"
)

type Template struct {
	Service domainTemplate.ITemplateUsecase
}

func InitRestTemplate(app fiber.Router, service domainTemplate.ITemplateUsecase) Template {
	rest := Template{Service: service}
	app.Post("/templates", rest.Create)
	app.Get("/templates/:account_id", rest.List)
	app.Delete("/templates/:id", rest.Delete)
	return rest
}

func (controller *Template) Create(c *fiber.Ctx) error {
	var request domainTemplate.CreateTemplateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	tpl, err := controller.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success create template",
		Results: tpl,
	})
}

func (controller *Template) List(c *fiber.Ctx) error {
	accountID := c.Params("account_id")
	if accountID == "" {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "account_id is required",
		})
	}

	templates, err := controller.Service.List(c.UserContext(), accountID)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch templates",
		Results: templates,
	})
}

func (controller *Template) Delete(c *fiber.Ctx) error {
	err := controller.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success delete template",
	})
}
