package audit

import (
	"salescrm/internal/common/api"
	"salescrm/internal/common/query"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

// ListLogs godoc
// @Summary      List audit logs
// @Tags         audit
// @Produce      json
// @Param        module     query  string  false  "Collection name"
// @Param        record_id  query  string  false  "Record id"
// @Param        page       query  int     false  "Page"
// @Param        limit      query  int     false  "Page size"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/audit-logs [get]
func (ctrl *AuditController) ListLogs(c *fiber.Ctx) error {
	logs, err := ctrl.Service.ListLogs(c.UserContext(), query.ParseListParams(c))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(logs)
}
