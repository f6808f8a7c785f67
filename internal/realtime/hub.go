// Package realtime fans change events out to connected websocket clients.
package realtime

import (
	"sync"

	"salescrm/internal/common/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Client struct {
	ID     string
	UserID string
	Events chan models.ChangeEvent
}

// Hub keeps the set of connected clients. Publish never blocks: a client
// whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register creates and adds a client with the given buffer size
func (h *Hub) Register(userID string, buffer int) *Client {
	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Events: make(chan models.ChangeEvent, buffer),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("Realtime client registered", zap.String("client_id", client.ID), zap.String("user_id", userID), zap.Int("total", total))
	return client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Debug("Realtime client unregistered", zap.String("client_id", clientID), zap.Int("total", len(h.clients)))
	}
}

func (h *Hub) Publish(evt models.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- evt:
		default:
			h.logger.Warn("Realtime client buffer full, skipping event", zap.String("client_id", client.ID), zap.String("event", evt.Event))
		}
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify publishes an event when pub is non-nil
func Notify(pub models.Publisher, event string, kind string, id string) {
	if pub == nil {
		return
	}
	pub.Publish(models.ChangeEvent{Event: event, Kind: kind, ID: id})
}
