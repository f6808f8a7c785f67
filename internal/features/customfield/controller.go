package customfield

import (
	"encoding/json"

	"salescrm/internal/common/api"
	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CustomFieldController struct {
	Service CustomFieldService
}

func NewCustomFieldController(service CustomFieldService) *CustomFieldController {
	return &CustomFieldController{Service: service}
}

// ListFields godoc
// @Summary      List custom field definitions
// @Tags         custom-fields
// @Produce      json
// @Param        entity_type  query  string  false  "contact, company, deal or activity"
// @Param        field_type   query  string  false  "Filter by field type"
// @Param        is_active    query  bool    false  "Filter by active flag"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/analytics/custom-fields [get]
func (ctrl *CustomFieldController) ListFields(c *fiber.Ctx) error {
	page, err := ctrl.Service.ListFields(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

func (ctrl *CustomFieldController) CreateField(c *fiber.Ctx) error {
	f := NewField()
	if err := api.Decode(c, f); err != nil {
		return api.Error(c, err)
	}
	created, err := ctrl.Service.CreateField(c.UserContext(), f)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ctrl *CustomFieldController) GetField(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	f, err := ctrl.Service.GetField(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(f)
}

func (ctrl *CustomFieldController) UpdateField(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	f, err := ctrl.Service.UpdateField(c.UserContext(), id, func(f *CustomField) error {
		return api.Decode(c, f)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(f)
}

func (ctrl *CustomFieldController) DeleteField(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := ctrl.Service.DeleteField(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ctrl *CustomFieldController) ListValues(c *fiber.Ctx) error {
	page, err := ctrl.Service.ListValues(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

// CreateValue godoc
// @Summary      Store a custom field value on a record
// @Description  Send either "value" or the slot matching the field type.
// @Tags         custom-fields
// @Accept       json
// @Produce      json
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Router       /api/analytics/custom-field-values [post]
func (ctrl *CustomFieldController) CreateValue(c *fiber.Ctx) error {
	body := &ValueBody{}
	if err := api.Decode(c, body); err != nil {
		return api.Error(c, err)
	}
	v, err := ctrl.Service.CreateValue(c.UserContext(), body)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}

func (ctrl *CustomFieldController) GetValue(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	v, err := ctrl.Service.GetValue(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(v)
}

func (ctrl *CustomFieldController) UpdateValue(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	v, err := ctrl.Service.UpdateValue(c.UserContext(), id, func(b *ValueBody) error {
		return api.Decode(c, b)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(v)
}

func (ctrl *CustomFieldController) DeleteValue(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := ctrl.Service.DeleteValue(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// EntityValues returns the custom field values of one record keyed by name
func (ctrl *CustomFieldController) EntityValues(c *fiber.Ctx) error {
	ref, err := entityRef(c)
	if err != nil {
		return api.Error(c, err)
	}
	values, err := ctrl.Service.ValuesFor(c.UserContext(), ref)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(values)
}

func (ctrl *CustomFieldController) SetEntityValue(c *fiber.Ctx) error {
	ref, err := entityRef(c)
	if err != nil {
		return api.Error(c, err)
	}
	fieldID, err := api.ParamID(c, "fieldId")
	if err != nil {
		return api.Error(c, err)
	}

	var body struct {
		Value json.RawMessage `json:"value"`
	}
	if err := api.Decode(c, &body); err != nil {
		return api.Error(c, err)
	}

	v, err := ctrl.Service.SetValue(c.UserContext(), ref, fieldID, body.Value)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(v)
}

func entityRef(c *fiber.Ctx) (common_models.EntityRef, error) {
	kind, err := common_models.ParseEntityKind(c.Params("kind"))
	if err != nil {
		return common_models.EntityRef{}, apperr.NotFound("entity kind")
	}
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return common_models.EntityRef{}, apperr.Invalid("id", "must be a valid id")
	}
	return common_models.EntityRef{Kind: kind, ID: id}, nil
}
