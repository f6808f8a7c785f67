package customfield

import (
	"salescrm/internal/config"
	"salescrm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CustomFieldApi struct {
	controller *CustomFieldController
	config     *config.Config
}

func NewCustomFieldApi(controller *CustomFieldController, config *config.Config) *CustomFieldApi {
	return &CustomFieldApi{
		controller: controller,
		config:     config,
	}
}

func (h *CustomFieldApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)

	fields := app.Group("/api/analytics/custom-fields", auth)
	fields.Get("/", h.controller.ListFields)
	fields.Post("/", h.controller.CreateField)
	fields.Get("/:id", h.controller.GetField)
	fields.Put("/:id", h.controller.UpdateField)
	fields.Patch("/:id", h.controller.UpdateField)
	fields.Delete("/:id", h.controller.DeleteField)

	values := app.Group("/api/analytics/custom-field-values", auth)
	values.Get("/", h.controller.ListValues)
	values.Post("/", h.controller.CreateValue)
	values.Get("/:id", h.controller.GetValue)
	values.Put("/:id", h.controller.UpdateValue)
	values.Patch("/:id", h.controller.UpdateValue)
	values.Delete("/:id", h.controller.DeleteValue)

	entities := app.Group("/api/entities/:kind/:id/custom-fields", auth)
	entities.Get("/", h.controller.EntityValues)
	entities.Put("/:fieldId", h.controller.SetEntityValue)
}
