package controllers

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/invoxly/invoxly/app/models"
	"github.com/invoxly/invoxly/internal/pkg/payment"
)

func TestPaymentErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid signature", err: payment.ErrInvalidSignature, wantStatus: fiber.StatusUnauthorized},
		{name: "user mismatch", err: payment.ErrUserMismatch, wantStatus: fiber.StatusForbidden},
		{name: "order not found", err: payment.ErrOrderNotFound, wantStatus: fiber.StatusNotFound},
		{name: "payment not found", err: payment.ErrPaymentNotFound, wantStatus: fiber.StatusNotFound},
		{name: "gateway unavailable", err: payment.ErrGatewayUnavailable, wantStatus: fiber.StatusServiceUnavailable},
		{name: "invalid plan", err: payment.ErrInvalidPlan, wantStatus: fiber.StatusBadRequest},
		{name: "payment incomplete", err: payment.ErrPaymentIncomplete, wantStatus: fiber.StatusBadRequest},
		{name: "unattributed order", err: payment.ErrOrderUnattributed, wantStatus: fiber.StatusBadRequest},
		{name: "unknown amount", err: payment.ErrUnknownPlanAmount, wantStatus: fiber.StatusBadRequest},
		{name: "no active subscription", err: payment.ErrNoActiveSubscription, wantStatus: fiber.StatusBadRequest},
		{name: "record not found", err: gorm.ErrRecordNotFound, wantStatus: fiber.StatusNotFound},
		{name: "wrapped sentinel", err: errors.New("plain failure"), wantStatus: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/err", func(c *fiber.Ctx) error {
				return paymentErrorResponse(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/err", nil))
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestValidInvoiceTransition(t *testing.T) {
	assert.True(t, validInvoiceTransition(models.InvoiceStatusDraft, models.InvoiceStatusSent))
	assert.True(t, validInvoiceTransition(models.InvoiceStatusDraft, models.InvoiceStatusVoid))
	assert.True(t, validInvoiceTransition(models.InvoiceStatusSent, models.InvoiceStatusPaid))
	assert.True(t, validInvoiceTransition(models.InvoiceStatusSent, models.InvoiceStatusVoid))

	assert.False(t, validInvoiceTransition(models.InvoiceStatusDraft, models.InvoiceStatusPaid))
	assert.False(t, validInvoiceTransition(models.InvoiceStatusPaid, models.InvoiceStatusDraft))
	assert.False(t, validInvoiceTransition(models.InvoiceStatusVoid, models.InvoiceStatusSent))
}

func TestPaginationParams(t *testing.T) {
	app := fiber.New()
	var offset, limit int
	app.Get("/list", func(c *fiber.Ctx) error {
		offset, limit = paginationParams(c)
		return c.SendStatus(fiber.StatusOK)
	})

	_, err := app.Test(httptest.NewRequest("GET", "/list?page=3&per_page=10", nil))
	assert.NoError(t, err)
	assert.Equal(t, 20, offset)
	assert.Equal(t, 10, limit)

	_, err = app.Test(httptest.NewRequest("GET", "/list?page=-1&per_page=5000", nil))
	assert.NoError(t, err)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 25, limit)
}

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2026, 5, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}
