package contact

import (
	"salescrm/internal/config"
	"salescrm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ContactApi struct {
	controller *ContactController
	config     *config.Config
}

func NewContactApi(controller *ContactController, config *config.Config) *ContactApi {
	return &ContactApi{
		controller: controller,
		config:     config,
	}
}

func (h *ContactApi) Setup(app *fiber.App) {
	contacts := app.Group("/api/contacts", middleware.AuthMiddleware(h.config.SkipAuth))

	contacts.Get("/", h.controller.ListContacts)
	contacts.Post("/", h.controller.CreateContact)
	contacts.Get("/stats", h.controller.Stats)
	contacts.Get("/:id", h.controller.GetContact)
	contacts.Put("/:id", h.controller.UpdateContact)
	contacts.Patch("/:id", h.controller.UpdateContact)
	contacts.Delete("/:id", h.controller.DeleteContact)
}
