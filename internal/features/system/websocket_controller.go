package system

import (
	"salescrm/internal/realtime"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const clientBuffer = 64

type WebSocketController struct {
	Hub    *realtime.Hub
	logger *zap.Logger
}

func NewWebSocketController(hub *realtime.Hub, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{Hub: hub, logger: logger}
}

// Upgrade rejects plain HTTP requests to the websocket endpoint
func (h *WebSocketController) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleWebSocket streams change events to the client until either side
// closes. Incoming messages are read and discarded.
func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	userID, _ := c.Locals("user_id").(string)
	client := h.Hub.Register(userID, clientBuffer)
	defer h.Hub.Unregister(client.ID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-client.Events:
			if !ok {
				return
			}
			if err := c.WriteJSON(evt); err != nil {
				h.logger.Debug("Websocket write failed", zap.String("client_id", client.ID), zap.Error(err))
				return
			}
		}
	}
}
