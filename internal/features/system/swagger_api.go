package system

import (
	"salescrm/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// SwaggerApi serves the generated API docs. Production deployments only
// expose them when SWAGGER_ENABLED is set.
type SwaggerApi struct {
	config *config.Config
}

func NewSwaggerApi(cfg *config.Config) *SwaggerApi {
	return &SwaggerApi{config: cfg}
}

func (h *SwaggerApi) Setup(app *fiber.App) {
	if h.config.IsProduction() && !h.config.SwaggerEnabled {
		return
	}
	app.Get("/swagger/*", swagger.New(swagger.Config{
		Title:        "Sales CRM API",
		DeepLinking:  true,
		DocExpansion: "none",
	}))
}
