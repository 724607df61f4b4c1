package rest

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ymzk/threadpilot/config"
	domainRunner "github.com/ymzk/threadpilot/domains/runner"
	"github.com/ymzk/threadpilot/pkg/utils"
)

type Jobs struct {
	Service domainRunner.IRunnerUsecase
}

func InitRestJobs(app fiber.Router, service domainRunner.IRunnerUsecase) Jobs {
	rest := Jobs{Service: service}
	app.Get("/jobs/run", rest.Run)
	app.Post("/jobs/run", rest.Run)
	return rest
}

// Run triggers one coordinator batch. The shared secret comes from the
// `key` query parameter or the X-Jobs-Key header; `dry=1` skips the
// platform calls.
func (controller *Jobs) Run(c *fiber.Ctx) error {
	if !authorizedJobsKey(c) {
		return c.Status(401).JSON(utils.ResponseData{
			Status:  401,
			Code:    "UNAUTHORIZED_ERROR",
			Message: "invalid jobs key",
		})
	}

	dry := c.Query("dry") == "1" || c.Query("dry") == "true"

	summary, err := controller.Service.RunDue(c.UserContext(), dry)
	if err != nil {
		if errors.Is(err, domainRunner.ErrRunInProgress) {
			return c.Status(409).JSON(utils.ResponseData{
				Status:  409,
				Code:    "RUN_IN_PROGRESS",
				Message: err.Error(),
			})
		}
		utils.PanicIfNeeded(err)
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success run due schedules",
		Results: summary,
	})
}

// authorizedJobsKey compares in constant time. An unset secret locks the
// endpoint instead of opening it.
func authorizedJobsKey(c *fiber.Ctx) bool {
	secret := config.JobsSecret
	if secret == "" {
		return false
	}

	provided := c.Query("key")
	if provided == "" {
		provided = c.Get("X-Jobs-Key")
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}
