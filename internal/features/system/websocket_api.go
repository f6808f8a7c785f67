package system

import (
	"salescrm/internal/config"
	"salescrm/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WebSocketApi struct {
	controller *WebSocketController
	config     *config.Config
}

func NewWebSocketApi(controller *WebSocketController, cfg *config.Config) *WebSocketApi {
	return &WebSocketApi{
		controller: controller,
		config:     cfg,
	}
}

func (h *WebSocketApi) Setup(app *fiber.App) {
	app.Get("/api/ws",
		middleware.AuthMiddleware(h.config.SkipAuth),
		h.controller.Upgrade,
		websocket.New(h.controller.HandleWebSocket))
}
