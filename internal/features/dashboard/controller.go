package dashboard

import (
	"salescrm/internal/common/api"
	"salescrm/internal/common/query"

	"github.com/gofiber/fiber/v2"
)

type DashboardController struct {
	Service DashboardService
}

func NewDashboardController(service DashboardService) *DashboardController {
	return &DashboardController{Service: service}
}

// Overview godoc
// @Summary      Dashboard overview
// @Description  Totals, pipeline, recent and upcoming activities, recent deals and the monthly trend.
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  Overview
// @Router       /api/dashboard [get]
func (ctrl *DashboardController) Overview(c *fiber.Ctx) error {
	overview, err := ctrl.Service.Overview(c.UserContext())
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(overview)
}

// Trend godoc
// @Summary      Six month trend of contacts, deals and won revenue
// @Tags         dashboard
// @Produce      json
// @Param        bucketing  query  string  false  "calendar (default) or rolling"
// @Success      200  {array}  TrendBucket
// @Router       /api/dashboard/trend [get]
func (ctrl *DashboardController) Trend(c *fiber.Ctx) error {
	trend, err := ctrl.Service.Trend(c.UserContext(), c.Query("bucketing"))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(trend)
}

func (ctrl *DashboardController) ListWidgets(c *fiber.Ctx) error {
	page, err := ctrl.Service.ListWidgets(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

func (ctrl *DashboardController) CreateWidget(c *fiber.Ctx) error {
	widget := New()
	if err := api.Decode(c, widget); err != nil {
		return api.Error(c, err)
	}
	created, err := ctrl.Service.CreateWidget(c.UserContext(), widget)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ctrl *DashboardController) GetWidget(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	widget, err := ctrl.Service.GetWidget(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(widget)
}

func (ctrl *DashboardController) UpdateWidget(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	widget, err := ctrl.Service.UpdateWidget(c.UserContext(), id, func(w *Widget) error {
		return api.Decode(c, w)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(widget)
}

func (ctrl *DashboardController) DeleteWidget(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := ctrl.Service.DeleteWidget(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ctrl *DashboardController) WidgetData(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	data, err := ctrl.Service.WidgetData(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(data)
}
