package system

import (
	"salescrm/internal/realtime"
	"salescrm/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type DebugController struct {
	hub *realtime.Hub
}

func NewDebugController(hub *realtime.Hub) *DebugController {
	return &DebugController{hub: hub}
}

// GetCurrentUser godoc
// @Summary      Get current user info
// @Description  Get the caller's identity from the JWT
// @Tags         debug
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/debug/me [get]
func (c *DebugController) GetCurrentUser(ctx *fiber.Ctx) error {
	claims, ok := utils.ClaimsFromContext(ctx.UserContext())
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}
	return ctx.JSON(fiber.Map{
		"user_id":  claims.UserID,
		"roles":    claims.Roles,
		"actor_id": utils.ActorID(ctx.UserContext()),
	})
}

// RealtimeStats godoc
// @Summary      Websocket hub stats
// @Tags         debug
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}
// @Router       /api/debug/realtime [get]
func (c *DebugController) RealtimeStats(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"clients": c.hub.Count()})
}
