package deal

import (
	"salescrm/internal/common/api"
	"salescrm/internal/common/apperr"
	"salescrm/internal/common/query"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DealController struct {
	Service DealService
}

func NewDealController(service DealService) *DealController {
	return &DealController{Service: service}
}

// ListDeals godoc
// @Summary      List deals
// @Tags         deals
// @Produce      json
// @Param        stage       query  string  false  "Filter by stage"
// @Param        contact_id  query  string  false  "Filter by contact"
// @Param        search      query  string  false  "Search name, description"
// @Param        ordering    query  string  false  "name, amount, expected_close_date, created_at"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/deals [get]
func (ctrl *DealController) ListDeals(c *fiber.Ctx) error {
	page, err := ctrl.Service.List(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

// CreateDeal godoc
// @Summary      Create deal
// @Tags         deals
// @Accept       json
// @Produce      json
// @Success      201  {object}  Deal
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/deals [post]
func (ctrl *DealController) CreateDeal(c *fiber.Ctx) error {
	deal := New()
	if err := api.Decode(c, deal); err != nil {
		return api.Error(c, err)
	}
	created, err := ctrl.Service.Create(c.UserContext(), deal)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ctrl *DealController) GetDeal(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	deal, err := ctrl.Service.Get(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(deal)
}

func (ctrl *DealController) UpdateDeal(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	deal, err := ctrl.Service.Update(c.UserContext(), id, func(d *Deal) error {
		return api.Decode(c, d)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(deal)
}

func (ctrl *DealController) DeleteDeal(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := ctrl.Service.Delete(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Pipeline godoc
// @Summary      Active deals grouped by stage
// @Tags         deals
// @Produce      json
// @Param        pipeline_id  query  string  false  "Order stages by this pipeline"
// @Success      200  {object}  PipelineSummary
// @Router       /api/deals/pipeline [get]
func (ctrl *DealController) Pipeline(c *fiber.Ctx) error {
	var pipelineID *primitive.ObjectID
	if raw := c.Query("pipeline_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return api.Error(c, apperr.Invalid("pipeline_id", "must be a valid id"))
		}
		pipelineID = &id
	}
	summary, err := ctrl.Service.Pipeline(c.UserContext(), pipelineID)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(summary)
}

func (ctrl *DealController) Stats(c *fiber.Ctx) error {
	stats, err := ctrl.Service.Stats(c.UserContext())
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(stats)
}
