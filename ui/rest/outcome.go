package rest

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ymzk/threadpilot/pkg/utils"
	"github.com/ymzk/threadpilot/repository"
)

const defaultOutcomeLimit = 50

type Outcome struct {
	Store repository.IOutcomeStore
}

func InitRestOutcome(app fiber.Router, store repository.IOutcomeStore) Outcome {
	rest := Outcome{Store: store}
	app.Get("/logs", rest.ListRecent)
	return rest
}

func (controller *Outcome) ListRecent(c *fiber.Ctx) error {
	limit := defaultOutcomeLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	records, err := controller.Store.ListRecent(c.UserContext(), limit)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch outcome log",
		Results: records,
	})
}
