package dashboard

import (
	"salescrm/internal/config"
	"salescrm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DashboardApi struct {
	controller *DashboardController
	config     *config.Config
}

func NewDashboardApi(controller *DashboardController, config *config.Config) *DashboardApi {
	return &DashboardApi{
		controller: controller,
		config:     config,
	}
}

func (h *DashboardApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)

	dashboard := app.Group("/api/dashboard", auth)
	dashboard.Get("/", h.controller.Overview)
	dashboard.Get("/trend", h.controller.Trend)

	widgets := app.Group("/api/analytics/dashboard-widgets", auth)
	widgets.Get("/", h.controller.ListWidgets)
	widgets.Post("/", h.controller.CreateWidget)
	widgets.Get("/:id", h.controller.GetWidget)
	widgets.Get("/:id/data", h.controller.WidgetData)
	widgets.Put("/:id", h.controller.UpdateWidget)
	widgets.Patch("/:id", h.controller.UpdateWidget)
	widgets.Delete("/:id", h.controller.DeleteWidget)
}
