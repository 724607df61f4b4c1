package rest

import (
	"github.com/gofiber/fiber/v2"

	domainPost "github.com/ymzk/threadpilot/domains/post"
	"github.com/ymzk/threadpilot/pkg/utils"
)

type Post struct {
	Service domainPost.IPostUsecase
}

func InitRestPost(app fiber.Router, service domainPost.IPostUsecase) Post {
	rest := Post{Service: service}
	app.Post("/posts", rest.Publish)
	return rest
}

func (controller *Post) Publish(c *fiber.Ctx) error {
	var request domainPost.PublishRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	response, err := controller.Service.Publish(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success publish post",
		Results: response,
	})
}
