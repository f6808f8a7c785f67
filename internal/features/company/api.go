package company

import (
	"salescrm/internal/config"
	"salescrm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CompanyApi struct {
	controller *CompanyController
	config     *config.Config
}

func NewCompanyApi(controller *CompanyController, config *config.Config) *CompanyApi {
	return &CompanyApi{
		controller: controller,
		config:     config,
	}
}

func (h *CompanyApi) Setup(app *fiber.App) {
	companies := app.Group("/api/companies", middleware.AuthMiddleware(h.config.SkipAuth))

	companies.Get("/", h.controller.ListCompanies)
	companies.Post("/", h.controller.CreateCompany)
	companies.Get("/stats", h.controller.Stats)
	companies.Get("/:id", h.controller.GetCompany)
	companies.Put("/:id", h.controller.UpdateCompany)
	companies.Patch("/:id", h.controller.UpdateCompany)
	companies.Delete("/:id", h.controller.DeleteCompany)
}
