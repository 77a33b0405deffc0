package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/invoxly/invoxly/app/repository"
	"github.com/invoxly/invoxly/internal/pkg/entitlements"
	"github.com/invoxly/invoxly/internal/pkg/session"
	"github.com/invoxly/invoxly/internal/pkg/usercontext"
)

// HandleGetUserAccount returns account and subscription information for the
// authenticated user. Reading the profile also settles lapsed subscriptions,
// so there is no separate expiry job.
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	repos := repository.GetGlobalRepositories()
	account, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	subs := getSubscriptions()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := subs.ExpireIfDue(ctx, userCtx.UserID); err != nil {
		log.Printf("profile: expiry check failed for user %d: %v", userCtx.UserID, err)
	}

	sub, err := subs.Current(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}

	role := entitlements.NormalizeRole(sub.Role)
	// Refresh the session cache so subsequent requests see the settled role.
	_ = session.SetSessionValue(c, USER_ROLE, string(role))

	openInvoices, err := repos.Invoice.CountOpenByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}
	customerCount, err := repos.Customer.CountByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load statistics")
	}

	var openInvoiceLimit interface{}
	if limit := entitlements.MaxOpenInvoices(role); limit > 0 {
		openInvoiceLimit = limit
	}

	return c.JSON(fiber.Map{
		"id":            account.ID,
		"username":      account.Name,
		"email":         account.Email,
		"company_name":  account.CompanyName,
		"status":        account.Status,
		"is_admin":      userCtx.IsAdmin,
		"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(account.LastLoginAt),
		"subscription": fiber.Map{
			"role":     role,
			"status":   sub.Status,
			"plan_id":  sub.PlanID,
			"end_date": formatTimePtr(sub.EndDate),
		},
		"stats": fiber.Map{
			"open_invoices": openInvoices,
			"customers":     customerCount,
		},
		"limits": fiber.Map{
			"max_open_invoices": openInvoiceLimit,
			"can_export":        entitlements.CanExport(role),
		},
	})
}

// HandleListUserPayments returns the authenticated user's applied payments.
func HandleListUserPayments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	offset, limit := paginationParams(c)
	records, err := repository.GetGlobalFactory().GetSubscriptionRepository().
		PaymentsByUserID(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load payments")
	}
	return c.JSON(fiber.Map{"payments": records})
}
