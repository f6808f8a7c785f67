package rollup

import (
	"time"

	"salescrm/internal/common/api"
	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type RollupController struct {
	Service *RollupService
	now     func() time.Time
}

func NewRollupController(service *RollupService) *RollupController {
	return &RollupController{Service: service, now: time.Now}
}

// Capture godoc
// @Summary      Capture rollups for one day
// @Description  Recomputes pipeline snapshots, activity summaries, contact engagement and deal forecasts. Defaults to today (UTC).
// @Tags         analytics
// @Produce      json
// @Param        date  query  string  false  "Day to capture, YYYY-MM-DD"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/analytics/rollups/capture [post]
func (ctrl *RollupController) Capture(c *fiber.Ctx) error {
	day := common_models.NewDate(ctrl.now())
	if raw := c.Query("date"); raw != "" {
		t, err := utils.ParseDay(raw)
		if err != nil {
			return api.Error(c, apperr.Invalid("date", "must be a date in YYYY-MM-DD format"))
		}
		day = common_models.NewDate(t)
	}

	res, err := ctrl.Service.Capture(c.UserContext(), day)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(res)
}

// rowHandlers exposes the CRUD operations of one rollup collection
type rowHandlers[T any, P row[T]] struct {
	rows *Rows[T, P]
}

func (h rowHandlers[T, P]) list(c *fiber.Ctx) error {
	page, err := h.rows.List(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(page)
}

func (h rowHandlers[T, P]) create(c *fiber.Ctx) error {
	doc := new(T)
	if err := api.Decode(c, doc); err != nil {
		return api.Error(c, err)
	}
	created, err := h.rows.Create(c.UserContext(), doc)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h rowHandlers[T, P]) get(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	doc, err := h.rows.Get(c.UserContext(), id)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(doc)
}

func (h rowHandlers[T, P]) update(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	doc, err := h.rows.Update(c.UserContext(), id, func(doc *T) error {
		return api.Decode(c, doc)
	})
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(doc)
}

func (h rowHandlers[T, P]) delete(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Error(c, err)
	}
	if err := h.rows.Delete(c.UserContext(), id); err != nil {
		return api.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h rowHandlers[T, P]) mount(r fiber.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/:id", h.get)
	r.Put("/:id", h.update)
	r.Patch("/:id", h.update)
	r.Delete("/:id", h.delete)
}
