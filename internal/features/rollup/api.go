package rollup

import (
	"salescrm/internal/config"
	"salescrm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RollupApi struct {
	controller *RollupController
	config     *config.Config
}

func NewRollupApi(controller *RollupController, config *config.Config) *RollupApi {
	return &RollupApi{
		controller: controller,
		config:     config,
	}
}

func (h *RollupApi) Setup(app *fiber.App) {
	analytics := app.Group("/api/analytics", middleware.AuthMiddleware(h.config.SkipAuth))

	svc := h.controller.Service
	rowHandlers[ActivitySummary, *ActivitySummary]{rows: svc.Summaries}.mount(analytics.Group("/activity-summaries"))
	rowHandlers[PipelineSnapshot, *PipelineSnapshot]{rows: svc.Snapshots}.mount(analytics.Group("/pipeline-snapshots"))
	rowHandlers[ContactEngagement, *ContactEngagement]{rows: svc.Engagement}.mount(analytics.Group("/contact-engagement"))
	rowHandlers[DealForecast, *DealForecast]{rows: svc.Forecasts}.mount(analytics.Group("/deal-forecasts"))

	analytics.Post("/rollups/capture", middleware.RequireRole(middleware.RoleAdmin), h.controller.Capture)
}
