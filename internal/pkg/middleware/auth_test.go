package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/invoxly/invoxly/internal/pkg/usercontext"
)

func gatedApp(handler fiber.Handler, userCtx *usercontext.UserContext, isAdmin bool) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userCtx != nil {
			c.Locals("USER_CONTEXT", *userCtx)
			c.Locals(usercontext.KeyFromProtected, userCtx.IsLoggedIn)
			c.Locals(usercontext.KeyIsAdmin, isAdmin)
		}
		return c.Next()
	})
	app.Get("/gated", handler, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestRequirePaid(t *testing.T) {
	tests := []struct {
		name       string
		userCtx    *usercontext.UserContext
		wantStatus int
	}{
		{name: "anonymous", userCtx: nil, wantStatus: fiber.StatusUnauthorized},
		{name: "free role", userCtx: &usercontext.UserContext{UserID: 1, IsLoggedIn: true, Role: "free"}, wantStatus: fiber.StatusForbidden},
		{name: "pro role", userCtx: &usercontext.UserContext{UserID: 1, IsLoggedIn: true, Role: "pro"}, wantStatus: fiber.StatusOK},
		{name: "max role", userCtx: &usercontext.UserContext{UserID: 1, IsLoggedIn: true, Role: "max"}, wantStatus: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := gatedApp(RequirePaid, tt.userCtx, false)
			resp, err := app.Test(httptest.NewRequest("GET", "/gated", nil))
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		userCtx    *usercontext.UserContext
		isAdmin    bool
		wantStatus int
	}{
		{name: "anonymous", userCtx: nil, wantStatus: fiber.StatusUnauthorized},
		{name: "regular user", userCtx: &usercontext.UserContext{UserID: 1, IsLoggedIn: true}, isAdmin: false, wantStatus: fiber.StatusForbidden},
		{name: "admin", userCtx: &usercontext.UserContext{UserID: 1, IsLoggedIn: true, IsAdmin: true}, isAdmin: true, wantStatus: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := gatedApp(RequireAdmin, tt.userCtx, tt.isAdmin)
			resp, err := app.Test(httptest.NewRequest("GET", "/gated", nil))
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
