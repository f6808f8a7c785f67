package company

import (
	"salescrm/internal/common/api"
	"salescrm/internal/common/query"

	"github.com/gofiber/fiber/v2"
)

type CompanyController struct {
	Service CompanyService
}

func NewCompanyController(service CompanyService) *CompanyController {
	return &CompanyController{Service: service}
}

// ListCompanies godoc
// @Summary      List companies
// @Tags         companies
// @Produce      json
// @Param        search    query  string  false  "Search name, email, phone, city, state"
// @Param        industry  query  string  false  "Filter by industry"
// @Param        ordering  query  string  false  "name, created_at, annual_revenue (prefix - for desc)"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/companies [get]
func (ctrl *CompanyController) ListCompanies(c *fiber.Ctx) error {
	page, err := ctrl.Service.List(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

// CreateCompany godoc
// @Summary      Create company
// @Tags         companies
// @Accept       json
// @Produce      json
// @Success      201  {object}  Company
// @Router       /api/companies [post]
func (ctrl *CompanyController) CreateCompany(c *fiber.Ctx) error {
	company := New()
	if err := api.Decode(c, company); err != nil {
		return api.Error(c, err)
	}

	created, err := ctrl.Service.Create(c.UserContext(), company)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ctrl *CompanyController) GetCompany(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	company, err := ctrl.Service.Get(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(company)
}

// UpdateCompany handles both PUT and PATCH; fields absent from the body
// keep their stored values.
func (ctrl *CompanyController) UpdateCompany(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	company, err := ctrl.Service.Update(c.UserContext(), id, func(co *Company) error {
		return api.Decode(c, co)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(company)
}

func (ctrl *CompanyController) DeleteCompany(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := ctrl.Service.Delete(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Stats godoc
// @Summary      Company statistics
// @Tags         companies
// @Produce      json
// @Success      200  {object}  Stats
// @Router       /api/companies/stats [get]
func (ctrl *CompanyController) Stats(c *fiber.Ctx) error {
	stats, err := ctrl.Service.Stats(c.UserContext())
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(stats)
}
