package activity

import (
	"salescrm/internal/common/api"
	"salescrm/internal/common/query"

	"github.com/gofiber/fiber/v2"
)

type ActivityController struct {
	Service ActivityService
}

func NewActivityController(service ActivityService) *ActivityController {
	return &ActivityController{Service: service}
}

// ListActivities godoc
// @Summary      List activities
// @Tags         activities
// @Produce      json
// @Param        activity_type  query  string  false  "call, email, meeting, task, note, demo, proposal"
// @Param        status         query  string  false  "pending, completed, cancelled"
// @Param        deal_id        query  string  false  "Filter by deal"
// @Param        ordering       query  string  false  "due_date, created_at, subject"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/activities [get]
func (ctrl *ActivityController) ListActivities(c *fiber.Ctx) error {
	page, err := ctrl.Service.List(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

func (ctrl *ActivityController) CreateActivity(c *fiber.Ctx) error {
	activity := New()
	if err := api.Decode(c, activity); err != nil {
		return api.Error(c, err)
	}
	created, err := ctrl.Service.Create(c.UserContext(), activity)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ctrl *ActivityController) GetActivity(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	activity, err := ctrl.Service.Get(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(activity)
}

func (ctrl *ActivityController) UpdateActivity(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	activity, err := ctrl.Service.Update(c.UserContext(), id, func(a *Activity) error {
		return api.Decode(c, a)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(activity)
}

func (ctrl *ActivityController) DeleteActivity(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := ctrl.Service.Delete(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Upcoming godoc
// @Summary      Pending activities due from now on
// @Tags         activities
// @Produce      json
// @Success      200  {array}  Activity
// @Router       /api/activities/upcoming [get]
func (ctrl *ActivityController) Upcoming(c *fiber.Ctx) error {
	activities, err := ctrl.Service.Upcoming(c.UserContext(), upcomingLimit)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(activities)
}

func (ctrl *ActivityController) Stats(c *fiber.Ctx) error {
	stats, err := ctrl.Service.Stats(c.UserContext())
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(stats)
}
