package report

import (
	"salescrm/internal/common/api"
	"salescrm/internal/common/query"

	"github.com/gofiber/fiber/v2"
)

type ReportController struct {
	Service ReportService
}

func NewReportController(service ReportService) *ReportController {
	return &ReportController{Service: service}
}

func (ctrl *ReportController) ListReports(c *fiber.Ctx) error {
	page, err := ctrl.Service.List(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

func (ctrl *ReportController) CreateReport(c *fiber.Ctx) error {
	report := New()
	if err := api.Decode(c, report); err != nil {
		return api.Error(c, err)
	}
	created, err := ctrl.Service.Create(c.UserContext(), report)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ctrl *ReportController) GetReport(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	report, err := ctrl.Service.Get(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(report)
}

func (ctrl *ReportController) UpdateReport(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	report, err := ctrl.Service.Update(c.UserContext(), id, func(r *Report) error {
		return api.Decode(c, r)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(report)
}

func (ctrl *ReportController) DeleteReport(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := ctrl.Service.Delete(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RunReport godoc
// @Summary      Run a saved report
// @Tags         analytics
// @Produce      json
// @Param        id  path  string  true  "Report id"
// @Success      200  {object}  Result
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/analytics/reports/{id}/run [get]
func (ctrl *ReportController) RunReport(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	result, err := ctrl.Service.Run(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(result)
}

// ExportReport godoc
// @Summary      Download a report as xlsx or csv
// @Tags         analytics
// @Produce      octet-stream
// @Param        id      path   string  true   "Report id"
// @Param        format  query  string  false  "xlsx (default) or csv"
// @Success      200
// @Router       /api/analytics/reports/{id}/export [get]
func (ctrl *ReportController) ExportReport(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	body, contentType, filename, err := ctrl.Service.Export(c.UserContext(), id, c.Query("format"))
	if err != nil {
		return api.Error(c, err)
	}

	c.Set("Content-Type", contentType)
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(body)
}
