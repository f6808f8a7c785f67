package goal

import (
	"salescrm/internal/common/api"
	"salescrm/internal/common/query"

	"github.com/gofiber/fiber/v2"
)

type GoalController struct {
	Service GoalService
}

func NewGoalController(service GoalService) *GoalController {
	return &GoalController{Service: service}
}

func (ctrl *GoalController) ListGoals(c *fiber.Ctx) error {
	page, err := ctrl.Service.List(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

func (ctrl *GoalController) CreateGoal(c *fiber.Ctx) error {
	goal := New()
	if err := api.Decode(c, goal); err != nil {
		return api.Error(c, err)
	}
	created, err := ctrl.Service.Create(c.UserContext(), goal)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ctrl *GoalController) GetGoal(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	goal, err := ctrl.Service.Get(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(goal)
}

func (ctrl *GoalController) UpdateGoal(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	goal, err := ctrl.Service.Update(c.UserContext(), id, func(g *SalesGoal) error {
		return api.Decode(c, g)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(goal)
}

func (ctrl *GoalController) DeleteGoal(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := ctrl.Service.Delete(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Progress godoc
// @Summary      Progress of a sales goal
// @Description  Percent is rounded to 2 places and may exceed 100.
// @Tags         analytics
// @Produce      json
// @Param        id  path  string  true  "Goal id"
// @Success      200  {object}  Progress
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/analytics/sales-goals/{id}/progress [get]
func (ctrl *GoalController) Progress(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	progress, err := ctrl.Service.Progress(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(progress)
}
