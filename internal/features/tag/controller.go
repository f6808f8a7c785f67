package tag

import (
	"salescrm/internal/common/api"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"

	"github.com/gofiber/fiber/v2"
)

type TagController struct {
	Service     TagService
	Assignments AssignmentService
}

func NewTagController(service TagService, assignments AssignmentService) *TagController {
	return &TagController{Service: service, Assignments: assignments}
}

// ListTags godoc
// @Summary      List tags
// @Tags         tags
// @Produce      json
// @Param        search  query  string  false  "Search name, description"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/tags [get]
func (ctrl *TagController) ListTags(c *fiber.Ctx) error {
	page, err := ctrl.Service.List(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

func (ctrl *TagController) CreateTag(c *fiber.Ctx) error {
	tag := New()
	if err := api.Decode(c, tag); err != nil {
		return api.Error(c, err)
	}
	created, err := ctrl.Service.Create(c.UserContext(), tag)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ctrl *TagController) GetTag(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	tag, err := ctrl.Service.Get(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(tag)
}

func (ctrl *TagController) UpdateTag(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	tag, err := ctrl.Service.Update(c.UserContext(), id, func(t *Tag) error {
		return api.Decode(c, t)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(tag)
}

func (ctrl *TagController) DeleteTag(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := ctrl.Service.Delete(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListAssignments godoc
// @Summary      List tag assignments of one entity kind
// @Tags         tags
// @Produce      json
// @Param        tag_id     query  string  false  "Filter by tag"
// @Param        target_id  query  string  false  "Filter by tagged record"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/contact-tags [get]
// @Router       /api/company-tags [get]
// @Router       /api/deal-tags [get]
func (ctrl *TagController) ListAssignments(kind common_models.EntityKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := ctrl.Assignments.List(c.UserContext(), kind, query.ParseListParams(c))
		if err != nil {
			return api.Error(c, err)
		}
		return c.JSON(page)
	}
}

func (ctrl *TagController) CreateAssignment(kind common_models.EntityKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in AssignmentInput
		if err := api.Decode(c, &in); err != nil {
			return api.Error(c, err)
		}
		a, err := ctrl.Assignments.Assign(c.UserContext(), kind, in)
		if err != nil {
			return api.Error(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(a)
	}
}

func (ctrl *TagController) GetAssignment(kind common_models.EntityKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		a, err := ctrl.Assignments.Get(c.UserContext(), kind, id)
		if err != nil {
			return api.Error(c, err)
		}
		return c.JSON(a)
	}
}

func (ctrl *TagController) DeleteAssignment(kind common_models.EntityKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		if err := ctrl.Assignments.Unassign(c.UserContext(), kind, id); err != nil {
			return api.Error(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
