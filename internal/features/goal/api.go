package goal

import (
	"salescrm/internal/config"
	"salescrm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type GoalApi struct {
	controller *GoalController
	config     *config.Config
}

func NewGoalApi(controller *GoalController, config *config.Config) *GoalApi {
	return &GoalApi{
		controller: controller,
		config:     config,
	}
}

func (h *GoalApi) Setup(app *fiber.App) {
	goals := app.Group("/api/analytics/sales-goals", middleware.AuthMiddleware(h.config.SkipAuth))
	goals.Get("/", h.controller.ListGoals)
	goals.Post("/", h.controller.CreateGoal)
	goals.Get("/:id", h.controller.GetGoal)
	goals.Get("/:id/progress", h.controller.Progress)
	goals.Put("/:id", h.controller.UpdateGoal)
	goals.Patch("/:id", h.controller.UpdateGoal)
	goals.Delete("/:id", h.controller.DeleteGoal)
}
