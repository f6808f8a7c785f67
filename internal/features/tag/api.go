package tag

import (
	common_models "salescrm/internal/common/models"
	"salescrm/internal/config"
	"salescrm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TagApi struct {
	controller *TagController
	config     *config.Config
}

func NewTagApi(controller *TagController, config *config.Config) *TagApi {
	return &TagApi{
		controller: controller,
		config:     config,
	}
}

var assignmentRoutes = map[string]common_models.EntityKind{
	"/api/contact-tags": common_models.EntityContact,
	"/api/company-tags": common_models.EntityCompany,
	"/api/deal-tags":    common_models.EntityDeal,
}

func (h *TagApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)

	tags := app.Group("/api/tags", auth)
	tags.Get("/", h.controller.ListTags)
	tags.Post("/", h.controller.CreateTag)
	tags.Get("/:id", h.controller.GetTag)
	tags.Put("/:id", h.controller.UpdateTag)
	tags.Patch("/:id", h.controller.UpdateTag)
	tags.Delete("/:id", h.controller.DeleteTag)

	for prefix, kind := range assignmentRoutes {
		g := app.Group(prefix, auth)
		g.Get("/", h.controller.ListAssignments(kind))
		g.Post("/", h.controller.CreateAssignment(kind))
		g.Get("/:id", h.controller.GetAssignment(kind))
		g.Delete("/:id", h.controller.DeleteAssignment(kind))
	}
}
