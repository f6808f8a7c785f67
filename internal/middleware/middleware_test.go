package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"salescrm/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestApp(skipAuth bool, logger *zap.Logger) *fiber.App {
	app := fiber.New()
	app.Use(RequestID(), RequestLogger(logger))
	app.Get("/whoami", AuthMiddleware(skipAuth), func(c *fiber.Ctx) error {
		return c.SendString(utils.ActorID(c.UserContext()))
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusConflict, "already exists")
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	utils.SetSecret("mw-secret")
	token, _ := utils.GenerateToken("rep-9", nil, time.Hour)

	tests := []struct {
		name       string
		skipAuth   bool
		url        string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"missing token", false, "/whoami", "", fiber.StatusUnauthorized, ""},
		{"bad scheme", false, "/whoami", "Basic abc", fiber.StatusUnauthorized, ""},
		{"invalid token", false, "/whoami", "Bearer nope", fiber.StatusUnauthorized, ""},
		{"bearer token", false, "/whoami", "Bearer " + token, fiber.StatusOK, "rep-9"},
		{"query token", false, "/whoami?token=" + token, "", fiber.StatusOK, "rep-9"},
		{"skip auth", true, "/whoami", "", fiber.StatusOK, devUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tt.skipAuth, zap.NewNop())
			req := httptest.NewRequest("GET", tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantBody != "" {
				body, _ := io.ReadAll(resp.Body)
				if string(body) != tt.wantBody {
					t.Errorf("body = %s, want %s", body, tt.wantBody)
				}
			}
		})
	}
}

func TestRequestIDAndLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	app := newTestApp(true, zap.New(core))

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Header.Get(RequestIDHeader); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}

	if logs.FilterMessage("Request").Len() != 1 {
		t.Errorf("expected one info request log, got %d", logs.FilterMessage("Request").Len())
	}
	warn := logs.FilterMessage("Client error").All()
	if len(warn) != 1 {
		t.Fatalf("expected one client error log, got %d", len(warn))
	}
	if warn[0].ContextMap()["status"] != int64(fiber.StatusConflict) {
		t.Errorf("logged status = %v", warn[0].ContextMap()["status"])
	}
}

func TestRequireRole(t *testing.T) {
	utils.SetSecret("mw-secret")
	admin, _ := utils.GenerateToken("boss", []string{"Admin"}, time.Hour)
	rep, _ := utils.GenerateToken("rep-1", []string{"sales"}, time.Hour)

	app := fiber.New()
	app.Get("/audit", AuthMiddleware(false), RequireRole(RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/open", RequireRole(RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		name       string
		url        string
		token      string
		wantStatus int
	}{
		{"admin", "/audit", admin, fiber.StatusOK},
		{"sales rep", "/audit", rep, fiber.StatusForbidden},
		{"no claims", "/open", "", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}
