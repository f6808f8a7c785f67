package deal

import (
	"salescrm/internal/config"
	"salescrm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DealApi struct {
	controller *DealController
	config     *config.Config
}

func NewDealApi(controller *DealController, config *config.Config) *DealApi {
	return &DealApi{
		controller: controller,
		config:     config,
	}
}

func (h *DealApi) Setup(app *fiber.App) {
	deals := app.Group("/api/deals", middleware.AuthMiddleware(h.config.SkipAuth))

	deals.Get("/", h.controller.ListDeals)
	deals.Post("/", h.controller.CreateDeal)
	deals.Get("/pipeline", h.controller.Pipeline)
	deals.Get("/stats", h.controller.Stats)
	deals.Get("/:id", h.controller.GetDeal)
	deals.Put("/:id", h.controller.UpdateDeal)
	deals.Patch("/:id", h.controller.UpdateDeal)
	deals.Delete("/:id", h.controller.DeleteDeal)
}
