package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/invoxly/invoxly/internal/pkg/payment"
)

// Shared session keys. The usercontext middleware reads these on every
// request.
const (
	AUTH_KEY       string = "authenticated"
	USER_ID        string = "user_id"
	USER_NAME      string = "username"
	USER_EMAIL     string = "user_email"
	USER_IS_ADMIN  string = "isAdmin"
	USER_ROLE      string = "user_role"
	FROM_PROTECTED string = "from_protected"
)

func isLoggedIn(c *fiber.Ctx) bool {
	var fromProtected bool
	if protectedValue := c.Locals(FROM_PROTECTED); protectedValue != nil {
		fromProtected = protectedValue.(bool)
	}

	return fromProtected
}

// parseIDParam reads a positive numeric :id route parameter.
func parseIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// paginationParams reads page/per_page query parameters with sane bounds.
func paginationParams(c *fiber.Ctx) (offset, limit int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("per_page", 25)
	if limit < 1 || limit > 100 {
		limit = 25
	}
	return (page - 1) * limit, limit
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// paymentErrorResponse maps payment pipeline errors onto HTTP statuses.
// Messages stay generic: detailed failure reasons belong in the server log,
// not in responses an attacker can probe.
func paymentErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Signature verification failed")
	case errors.Is(err, payment.ErrUserMismatch):
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Payment does not belong to this account")
	case errors.Is(err, payment.ErrOrderNotFound), errors.Is(err, payment.ErrPaymentNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Payment could not be verified")
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return jsonError(c, fiber.StatusServiceUnavailable, "gateway_unavailable", "Payment provider is unavailable")
	case errors.Is(err, payment.ErrInvalidPlan),
		errors.Is(err, payment.ErrPaymentIncomplete),
		errors.Is(err, payment.ErrOrderUnattributed),
		errors.Is(err, payment.ErrUnknownPlanAmount):
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Payment could not be processed")
	case errors.Is(err, payment.ErrNoActiveSubscription):
		return jsonError(c, fiber.StatusBadRequest, "no_active_subscription", "No active subscription to cancel")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Not found")
	default:
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Something went wrong")
	}
}
