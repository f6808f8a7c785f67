package pipeline

import (
	"salescrm/internal/config"
	"salescrm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type PipelineApi struct {
	controller *PipelineController
	config     *config.Config
}

func NewPipelineApi(controller *PipelineController, config *config.Config) *PipelineApi {
	return &PipelineApi{
		controller: controller,
		config:     config,
	}
}

func (h *PipelineApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)

	pipelines := app.Group("/api/pipelines", auth)
	pipelines.Get("/", h.controller.ListPipelines)
	pipelines.Post("/", h.controller.CreatePipeline)
	pipelines.Get("/:id", h.controller.GetPipeline)
	pipelines.Get("/:id/stages", h.controller.PipelineStages)
	pipelines.Put("/:id", h.controller.UpdatePipeline)
	pipelines.Patch("/:id", h.controller.UpdatePipeline)
	pipelines.Delete("/:id", h.controller.DeletePipeline)

	stages := app.Group("/api/pipeline-stages", auth)
	stages.Get("/", h.controller.ListStages)
	stages.Post("/", h.controller.CreateStage)
	stages.Get("/:id", h.controller.GetStage)
	stages.Put("/:id", h.controller.UpdateStage)
	stages.Patch("/:id", h.controller.UpdateStage)
	stages.Delete("/:id", h.controller.DeleteStage)
}
