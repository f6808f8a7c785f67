package report

import (
	"salescrm/internal/config"
	"salescrm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ReportApi struct {
	controller *ReportController
	config     *config.Config
}

func NewReportApi(controller *ReportController, config *config.Config) *ReportApi {
	return &ReportApi{
		controller: controller,
		config:     config,
	}
}

func (h *ReportApi) Setup(app *fiber.App) {
	reports := app.Group("/api/analytics/reports", middleware.AuthMiddleware(h.config.SkipAuth))
	reports.Get("/", h.controller.ListReports)
	reports.Post("/", h.controller.CreateReport)
	reports.Get("/:id", h.controller.GetReport)
	reports.Get("/:id/run", h.controller.RunReport)
	reports.Get("/:id/export", h.controller.ExportReport)
	reports.Put("/:id", h.controller.UpdateReport)
	reports.Patch("/:id", h.controller.UpdateReport)
	reports.Delete("/:id", h.controller.DeleteReport)
}
