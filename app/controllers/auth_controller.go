package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/invoxly/invoxly/app/models"
	"github.com/invoxly/invoxly/app/repository"
	"github.com/invoxly/invoxly/internal/pkg/session"
)

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleAuthRegister creates a new account and logs it in.
func HandleAuthRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), strings.TrimSpace(strings.ToLower(req.Email)), req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Name, email and password are required")
	}
	user.CompanyName = strings.TrimSpace(req.CompanyName)

	repo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := repo.GetByEmail(user.Email); err == nil {
		return jsonError(c, fiber.StatusConflict, "conflict", "An account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("register: email lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Registration failed")
	}

	if err := repo.Create(user); err != nil {
		log.Printf("register: create user failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Registration failed")
	}

	if err := startSession(c, user); err != nil {
		log.Printf("register: session start failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Registration failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

// HandleAuthLogin authenticates a user and starts their session.
// Login failures stay deliberately vague.
func HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid credentials")
	}
	if !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid credentials")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Account is disabled")
	}

	if err := startSession(c, user); err != nil {
		log.Printf("login: session start failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
	}

	if err := repo.TouchLastLogin(user.ID, time.Now()); err != nil {
		log.Printf("login: last login update failed for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"name":     user.Name,
		"email":    user.Email,
		"is_admin": user.Role == models.ROLE_ADMIN,
	})
}

// HandleAuthLogout destroys the current session.
func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			log.Printf("logout: session destroy failed: %v", err)
		}
	}
	c.Locals(FROM_PROTECTED, false)
	return c.JSON(fiber.Map{"success": true})
}

func startSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}

	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_EMAIL, user.Email)
	sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)
	// Drop any cached role; the middleware reloads it on the next request.
	sess.Delete(USER_ROLE)

	return sess.Save()
}
