package pipeline

import (
	"salescrm/internal/common/api"
	"salescrm/internal/common/query"

	"github.com/gofiber/fiber/v2"
)

type PipelineController struct {
	Service PipelineService
}

func NewPipelineController(service PipelineService) *PipelineController {
	return &PipelineController{Service: service}
}

// ListPipelines godoc
// @Summary      List pipelines
// @Tags         pipelines
// @Produce      json
// @Param        search    query  string  false  "Search name, description"
// @Param        ordering  query  string  false  "name, created_at"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/pipelines [get]
func (ctrl *PipelineController) ListPipelines(c *fiber.Ctx) error {
	page, err := ctrl.Service.List(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

func (ctrl *PipelineController) CreatePipeline(c *fiber.Ctx) error {
	p := New()
	if err := api.Decode(c, p); err != nil {
		return api.Error(c, err)
	}
	created, err := ctrl.Service.Create(c.UserContext(), p)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ctrl *PipelineController) GetPipeline(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	p, err := ctrl.Service.Get(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(p)
}

func (ctrl *PipelineController) UpdatePipeline(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	p, err := ctrl.Service.Update(c.UserContext(), id, func(p *Pipeline) error {
		return api.Decode(c, p)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(p)
}

func (ctrl *PipelineController) DeletePipeline(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := ctrl.Service.Delete(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PipelineStages godoc
// @Summary      Stages of one pipeline ordered by position
// @Tags         pipelines
// @Produce      json
// @Param        id  path  string  true  "Pipeline ID"
// @Success      200  {array}  Stage
// @Router       /api/pipelines/{id}/stages [get]
func (ctrl *PipelineController) PipelineStages(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	stages, err := ctrl.Service.Stages(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(stages)
}

func (ctrl *PipelineController) ListStages(c *fiber.Ctx) error {
	page, err := ctrl.Service.ListStages(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

func (ctrl *PipelineController) CreateStage(c *fiber.Ctx) error {
	st := &Stage{}
	if err := api.Decode(c, st); err != nil {
		return api.Error(c, err)
	}
	created, err := ctrl.Service.CreateStage(c.UserContext(), st)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ctrl *PipelineController) GetStage(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	st, err := ctrl.Service.GetStage(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(st)
}

func (ctrl *PipelineController) UpdateStage(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	st, err := ctrl.Service.UpdateStage(c.UserContext(), id, func(st *Stage) error {
		return api.Decode(c, st)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(st)
}

func (ctrl *PipelineController) DeleteStage(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := ctrl.Service.DeleteStage(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
