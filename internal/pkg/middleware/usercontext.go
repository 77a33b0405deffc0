package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/invoxly/invoxly/app/controllers"
	"github.com/invoxly/invoxly/app/models"
	"github.com/invoxly/invoxly/internal/pkg/database"
	"github.com/invoxly/invoxly/internal/pkg/entitlements"
	"github.com/invoxly/invoxly/internal/pkg/session"
	"github.com/invoxly/invoxly/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request
// This centralizes user session handling and eliminates code duplication
func UserContextMiddleware(c *fiber.Ctx) error {
	// Get session with error handling
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		// On error: set as anonymous user
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		c.Locals(controllers.FROM_PROTECTED, false)
		c.Locals(controllers.USER_IS_ADMIN, false)
		return c.Next()
	}

	// Get user ID from session
	userID := sess.Get(controllers.USER_ID)
	if userID == nil {
		// Anonymous user - no session data
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		c.Locals(controllers.FROM_PROTECTED, false)
		c.Locals(controllers.USER_IS_ADMIN, false)
		return c.Next()
	}

	// User is logged in - get additional data
	username := session.GetSessionValue(c, controllers.USER_NAME)
	email := session.GetSessionValue(c, controllers.USER_EMAIL)
	isAdmin := sess.Get(controllers.USER_IS_ADMIN)

	// Determine role with session-first strategy; fall back to the
	// subscription row and cache the answer for subsequent requests.
	role := session.GetSessionValue(c, controllers.USER_ROLE)
	if role == "" {
		role = string(entitlements.RoleFree)
		if db := database.GetDB(); db != nil {
			if sub, err := models.GetOrCreateSubscription(db, userID.(uint)); err == nil && sub.Role != "" {
				role = string(entitlements.NormalizeRole(sub.Role))
			}
		}
		_ = session.SetSessionValue(c, controllers.USER_ROLE, role)
	}

	// Set complete user context
	userCtx := usercontext.UserContext{
		UserID:     userID.(uint),
		Username:   username,
		Email:      email,
		IsLoggedIn: true,
		IsAdmin:    isAdmin != nil && isAdmin.(bool),
		Role:       role,
	}
	c.Locals("USER_CONTEXT", userCtx)

	c.Locals(controllers.FROM_PROTECTED, true)
	c.Locals(controllers.USER_NAME, username)
	c.Locals(controllers.USER_ID, userID.(uint))
	c.Locals(controllers.USER_IS_ADMIN, userCtx.IsAdmin)

	return c.Next()
}
