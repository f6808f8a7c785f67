package system

import (
	"context"
	"time"

	"salescrm/internal/database"
	"salescrm/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger struct {
	client *redis.Client
}

func (r redisPinger) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type HealthController struct {
	Mongo Pinger
	Redis Pinger
	Hub   *realtime.Hub
}

func NewHealthController(mongodb *database.MongodbDB, rdb *redis.Client, hub *realtime.Hub) *HealthController {
	h := &HealthController{Mongo: mongodb, Hub: hub}
	if rdb != nil {
		h.Redis = redisPinger{client: rdb}
	}
	return h
}

// Health godoc
// @Summary      Service health
// @Description  Reports MongoDB and Redis reachability. Responds 503 when MongoDB is down.
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthController) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	mongoState := "ok"
	if err := h.Mongo.Ping(ctx); err != nil {
		mongoState = "error: " + err.Error()
		status = fiber.StatusServiceUnavailable
	}

	redisState := "disabled"
	if h.Redis != nil {
		redisState = "ok"
		if err := h.Redis.Ping(ctx); err != nil {
			redisState = "error: " + err.Error()
		}
	}

	clients := 0
	if h.Hub != nil {
		clients = h.Hub.Count()
	}

	state := "ok"
	if status != fiber.StatusOK {
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":           state,
		"mongo":            mongoState,
		"redis":            redisState,
		"realtime_clients": clients,
	})
}
