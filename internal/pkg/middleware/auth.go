package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/invoxly/invoxly/internal/pkg/entitlements"
	icuser "github.com/invoxly/invoxly/internal/pkg/usercontext"
)

func sessionLoggedIn(c *fiber.Ctx) bool {
	if b, ok := c.Locals(icuser.KeyFromProtected).(bool); ok {
		return b
	}
	return false
}

// RequireAPISessionAuth ensures a logged-in session for API routes and returns JSON 401 instead of redirect.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if !sessionLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// RequireAdmin ensures a logged-in admin; returns JSON 403 otherwise.
func RequireAdmin(c *fiber.Ctx) error {
	if !sessionLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	if isAdmin, ok := c.Locals(icuser.KeyIsAdmin).(bool); !ok || !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin access required",
		})
	}
	return c.Next()
}

// RequirePaid ensures the session belongs to a paid role. Gate for exports
// and other paid-only features.
func RequirePaid(c *fiber.Ctx) error {
	userCtx := icuser.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	if !entitlements.IsPaid(entitlements.NormalizeRole(userCtx.Role)) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "paid plan required",
		})
	}
	return c.Next()
}
