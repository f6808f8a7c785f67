package contact

import (
	"salescrm/internal/common/api"
	"salescrm/internal/common/query"

	"github.com/gofiber/fiber/v2"
)

type ContactController struct {
	Service ContactService
}

func NewContactController(service ContactService) *ContactController {
	return &ContactController{Service: service}
}

// ListContacts godoc
// @Summary      List contacts
// @Tags         contacts
// @Produce      json
// @Param        search      query  string  false  "Search first_name, last_name, email, phone"
// @Param        status      query  string  false  "lead, prospect, customer, inactive"
// @Param        company_id  query  string  false  "Filter by company"
// @Param        ordering    query  string  false  "last_name, first_name, created_at"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/contacts [get]
func (ctrl *ContactController) ListContacts(c *fiber.Ctx) error {
	page, err := ctrl.Service.List(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

// CreateContact godoc
// @Summary      Create contact
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Success      201  {object}  Contact
// @Router       /api/contacts [post]
func (ctrl *ContactController) CreateContact(c *fiber.Ctx) error {
	contact := New()
	if err := api.Decode(c, contact); err != nil {
		return api.Error(c, err)
	}
	created, err := ctrl.Service.Create(c.UserContext(), contact)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ctrl *ContactController) GetContact(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	contact, err := ctrl.Service.Get(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(contact)
}

func (ctrl *ContactController) UpdateContact(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	contact, err := ctrl.Service.Update(c.UserContext(), id, func(ct *Contact) error {
		return api.Decode(c, ct)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(contact)
}

func (ctrl *ContactController) DeleteContact(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := ctrl.Service.Delete(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ctrl *ContactController) Stats(c *fiber.Ctx) error {
	stats, err := ctrl.Service.Stats(c.UserContext())
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(stats)
}
