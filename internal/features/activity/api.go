package activity

import (
	"salescrm/internal/config"
	"salescrm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ActivityApi struct {
	controller *ActivityController
	config     *config.Config
}

func NewActivityApi(controller *ActivityController, config *config.Config) *ActivityApi {
	return &ActivityApi{
		controller: controller,
		config:     config,
	}
}

func (h *ActivityApi) Setup(app *fiber.App) {
	activities := app.Group("/api/activities", middleware.AuthMiddleware(h.config.SkipAuth))

	activities.Get("/", h.controller.ListActivities)
	activities.Post("/", h.controller.CreateActivity)
	activities.Get("/upcoming", h.controller.Upcoming)
	activities.Get("/stats", h.controller.Stats)
	activities.Get("/:id", h.controller.GetActivity)
	activities.Put("/:id", h.controller.UpdateActivity)
	activities.Patch("/:id", h.controller.UpdateActivity)
	activities.Delete("/:id", h.controller.DeleteActivity)
}
