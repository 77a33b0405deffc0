package controllers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/invoxly/invoxly/app/models"
)

func TestWebhookAlreadyHandled(t *testing.T) {
	now := time.Now()
	processed := &models.PaymentWebhookEvent{EventID: "evt_1", ProcessedAt: &now}
	failed := &models.PaymentWebhookEvent{EventID: "evt_2", ProcessingError: "gateway unavailable"}
	inflight := &models.PaymentWebhookEvent{EventID: "evt_3"}

	tests := []struct {
		name    string
		created bool
		stored  *models.PaymentWebhookEvent
		want    bool
	}{
		{name: "fresh delivery", created: true, stored: inflight, want: false},
		{name: "redelivery of processed event", created: false, stored: processed, want: true},
		{name: "redelivery after failed attempt", created: false, stored: failed, want: false},
		{name: "redelivery of in-flight event", created: false, stored: inflight, want: false},
		{name: "missing stored row", created: false, stored: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, webhookAlreadyHandled(tt.created, tt.stored))
		})
	}
}

// An unsigned delivery must be rejected before the handler touches storage.
// The repository factory is deliberately left uninitialized here: reaching
// for it before the signature check would panic the test.
func TestWebhookRejectsUnsignedWithoutPersistence(t *testing.T) {
	app := fiber.New()
	app.Post("/webhook", HandlePaymentWebhook)

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{"event":"payment.captured"}`))
	req.Header.Set("X-Razorpay-Signature", "deadbeef")
	req.Header.Set("X-Razorpay-Event-Id", "evt_forged")

	resp, err := app.Test(req, 5000)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
