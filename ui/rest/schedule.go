package rest

import (
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"

	domainSchedule "github.com/ymzk/threadpilot/domains/schedule"
	"github.com/ymzk/threadpilot/pkg/utils"
)

type Schedule struct {
	Service domainSchedule.IScheduleUsecase
}

// scheduleView decorates a schedule with a readable due time for the admin
// surface.
type scheduleView struct {
	domainSchedule.Schedule
	NextRunIn string `json:"next_run_in"`
}

func InitRestSchedule(app fiber.Router, service domainSchedule.IScheduleUsecase) Schedule {
	rest := Schedule{Service: service}
	app.Post("/schedules", rest.Create)
	app.Get("/schedules", rest.List)
	app.Put("/schedules/:id/active", rest.SetActive)
	app.Delete("/schedules/:id", rest.Delete)
	return rest
}

func (controller *Schedule) Create(c *fiber.Ctx) error {
	var request domainSchedule.CreateScheduleRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	sch, err := controller.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success create schedule",
		Results: sch,
	})
}

func (controller *Schedule) List(c *fiber.Ctx) error {
	schedules, err := controller.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	views := make([]scheduleView, 0, len(schedules))
	for _, sch := range schedules {
		views = append(views, scheduleView{
			Schedule:  sch,
			NextRunIn: humanize.Time(sch.NextRun),
		})
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch schedules",
		Results: views,
	})
}

func (controller *Schedule) SetActive(c *fiber.Ctx) error {
	var request struct {
		Active bool `json:"active"`
	}
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	err = controller.Service.SetActive(c.UserContext(), c.Params("id"), request.Active)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success update schedule",
	})
}

func (controller *Schedule) Delete(c *fiber.Ctx) error {
	err := controller.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success delete schedule",
	})
}
