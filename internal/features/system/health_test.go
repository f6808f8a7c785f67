package system

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func healthApp(h *HealthController) *fiber.App {
	app := fiber.New()
	NewHealthApi(h).Setup(app)
	return app
}

func TestHealthOK(t *testing.T) {
	app := healthApp(&HealthController{Mongo: stubPinger{}})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["mongo"] != "ok" || body["redis"] != "disabled" {
		t.Errorf("body = %v", body)
	}
}

func TestHealthMongoDown(t *testing.T) {
	app := healthApp(&HealthController{
		Mongo: stubPinger{err: errors.New("no primary")},
		Redis: stubPinger{},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}

	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "degraded" || body["redis"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app := fiber.New()
	ctrl := &WebSocketController{}
	app.Get("/api/ws", ctrl.Upgrade, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/api/ws", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}
