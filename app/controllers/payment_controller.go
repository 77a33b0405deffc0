package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/invoxly/invoxly/app/models"
	"github.com/invoxly/invoxly/app/repository"
	"github.com/invoxly/invoxly/internal/pkg/env"
	"github.com/invoxly/invoxly/internal/pkg/metrics/counter"
	"github.com/invoxly/invoxly/internal/pkg/payment"
	"github.com/invoxly/invoxly/internal/pkg/session"
	"github.com/invoxly/invoxly/internal/pkg/usercontext"
)

var (
	paymentGateway       payment.Gateway
	paymentOrders        *payment.OrderService
	paymentResolver      *payment.Resolver
	paymentSubscriptions *payment.Subscriptions
	paymentProcessor     *payment.Processor
	checkoutKeyID        string
	checkoutKeySecret    string
)

// InitializePaymentControllers wires the payment pipeline from env config.
// Must run after the database and repositories are up. Without gateway
// credentials the endpoints answer 503 instead of panicking.
func InitializePaymentControllers() {
	checkoutKeyID = env.GetEnv("RAZORPAY_KEY_ID", "")
	checkoutKeySecret = env.GetEnv("RAZORPAY_KEY_SECRET", "")
	webhookSecret := env.GetEnv("RAZORPAY_WEBHOOK_SECRET", "")

	gateway, err := payment.NewRazorpayGateway(checkoutKeyID, checkoutKeySecret)
	if err != nil {
		log.Printf("Warning: payment gateway not configured: %v", err)
	} else {
		paymentGateway = gateway
	}

	catalog := payment.DefaultCatalog()
	store := repository.GetGlobalFactory().GetSubscriptionRepository()

	paymentOrders = payment.NewOrderService(paymentGateway, catalog)
	paymentResolver = payment.NewResolver(paymentGateway, catalog)
	paymentSubscriptions = payment.NewSubscriptions(store, catalog, newPurchaseLedger())
	paymentProcessor = payment.NewProcessor(paymentResolver, paymentSubscriptions, webhookSecret)
}

func getSubscriptions() *payment.Subscriptions {
	return paymentSubscriptions
}

type createOrderRequest struct {
	PlanID string `json:"plan_id"`
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// HandleCreateOrder creates a gateway order for a plan purchase. The order
// notes carry the user and plan so webhook deliveries can attribute the
// payment without a session.
func HandleCreateOrder(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	order, err := paymentOrders.CreateOrder(ctx, userCtx.UserID, strings.TrimSpace(req.PlanID))
	if err != nil {
		if !errors.Is(err, payment.ErrInvalidPlan) {
			log.Printf("order create failed: user=%d plan=%s err=%v", userCtx.UserID, req.PlanID, err)
		}
		return paymentErrorResponse(c, err)
	}

	if err := counter.AddOrderCreated(); err != nil {
		log.Printf("order counter increment failed: %v", err)
	}

	return c.JSON(fiber.Map{
		"order_id": order.OrderID,
		"amount":   order.AmountMinorUnits,
		"currency": order.Currency,
		"plan_id":  order.PlanID,
		"key_id":   checkoutKeyID,
	})
}

// HandleVerifyPayment is the synchronous leg of the purchase flow: the
// checkout widget posts back the order, payment and signature after the user
// pays. The signature proves the pair came from the gateway; the grant itself
// still rests on an authoritative payment fetch, never on client-sent state.
func HandleVerifyPayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	var req verifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Missing payment parameters")
	}

	attestation := payment.CheckoutAttestation(req.RazorpayOrderID, req.RazorpayPaymentID)
	if !payment.VerifySignature(attestation, req.RazorpaySignature, checkoutKeySecret) {
		log.Printf("SECURITY: checkout signature verification failed: user=%d order=%s payment=%s ip=%s",
			userCtx.UserID, req.RazorpayOrderID, req.RazorpayPaymentID, c.IP())
		return paymentErrorResponse(c, payment.ErrInvalidSignature)
	}

	// Detached from the client connection: once the signature checks out the
	// money has moved, and an aborted request must not abandon the grant.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resolved, err := paymentResolver.Resolve(ctx, req.RazorpayOrderID, req.RazorpayPaymentID, userCtx.UserID)
	if err != nil {
		if errors.Is(err, payment.ErrUserMismatch) {
			log.Printf("SECURITY: payment verify user mismatch: session_user=%d order=%s payment=%s",
				userCtx.UserID, req.RazorpayOrderID, req.RazorpayPaymentID)
		} else {
			log.Printf("payment resolve failed: user=%d order=%s err=%v", userCtx.UserID, req.RazorpayOrderID, err)
		}
		return paymentErrorResponse(c, err)
	}

	outcome, err := paymentSubscriptions.ApplyPayment(ctx, payment.ApplyInput{
		UserID:           resolved.UserID,
		PaymentID:        resolved.PaymentID,
		OrderID:          resolved.OrderID,
		PlanID:           resolved.PlanID,
		AmountMinorUnits: resolved.AmountMinorUnits,
		Currency:         resolved.Currency,
		GatewayStatus:    resolved.GatewayStatus,
	})
	if err != nil {
		log.Printf("payment apply failed: user=%d payment=%s err=%v", resolved.UserID, resolved.PaymentID, err)
		return paymentErrorResponse(c, err)
	}

	// Refresh the cached role so the new entitlement is visible immediately.
	_ = session.SetSessionValue(c, USER_ROLE, string(outcome.Role))

	return c.JSON(fiber.Map{
		"success":         true,
		"plan_id":         resolved.PlanID,
		"role":            outcome.Role,
		"end_date":        formatTimePtr(outcome.EndDate),
		"already_applied": outcome.AlreadyApplied,
	})
}

// HandleCancelSubscription cancels the user's subscription effective at its
// paid-through date. The paid role stays until then.
func HandleCancelSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sub, err := paymentSubscriptions.Current(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}
	endsAt := time.Now()
	if sub.EndDate != nil {
		endsAt = *sub.EndDate
	}

	if err := paymentSubscriptions.Cancel(ctx, userCtx.UserID, endsAt); err != nil {
		return paymentErrorResponse(c, err)
	}
	if err := paymentSubscriptions.ExpireIfDue(ctx, userCtx.UserID); err != nil {
		log.Printf("cancel: expiry check failed for user %d: %v", userCtx.UserID, err)
	}

	current, err := paymentSubscriptions.Current(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}
	_ = session.SetSessionValue(c, USER_ROLE, current.Role)

	return c.JSON(fiber.Map{
		"success":  true,
		"status":   current.Status,
		"role":     current.Role,
		"end_date": formatTimePtr(current.EndDate),
	})
}

// HandlePaymentWebhook receives gateway webhook deliveries. Forged
// deliveries are rejected before any persistence or parsing; everything else
// is stored for dedupe and audit. Delivery is at-least-once, so only a
// successfully processed event ID is acked as a duplicate; a redelivery
// after a transient failure gets another attempt.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Razorpay-Signature"))
	eventID := firstHeaderValue(c, "X-Razorpay-Event-Id", "X-Razorpay-Event-ID")

	if err := counter.AddWebhookReceived(); err != nil {
		log.Printf("webhook counter increment failed: %v", err)
	}

	if !payment.VerifySignature(rawBody, signature, env.GetEnv("RAZORPAY_WEBHOOK_SECRET", "")) {
		log.Printf("SECURITY: webhook signature verification failed: event=%s ip=%s", eventID, c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	// Without an event ID header we cannot dedupe deliveries, but we still
	// want the audit row; synthesize a local ID. Replays then create extra
	// rows, and the unique payment insert downstream keeps grants idempotent.
	if eventID == "" {
		eventID = "local_" + uuid.NewString()
	}

	repo := repository.GetGlobalFactory().GetWebhookEventRepository()
	created, stored, err := repo.CreateIfNotExists(&models.PaymentWebhookEvent{
		EventID:        eventID,
		EventType:      eventTypeFromBody(rawBody),
		PayloadJSON:    string(rawBody),
		SignatureValid: true,
	})
	if err != nil {
		log.Printf("webhook persist failed: event=%s err=%v", eventID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if webhookAlreadyHandled(created, stored) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := paymentProcessor.Handle(ctx, rawBody, signature)
	if err != nil {
		log.Printf("webhook processing failed: event=%s err=%v", eventID, err)
		if mErr := repo.MarkFailed(stored.ID, err.Error()); mErr != nil {
			log.Printf("webhook mark failed errored: id=%d err=%v", stored.ID, mErr)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	if err := repo.MarkProcessed(stored.ID); err != nil {
		log.Printf("webhook mark processed failed: id=%d err=%v", stored.ID, err)
	}
	if result.Ignored {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// webhookAlreadyHandled decides whether a delivery can be acked without
// reprocessing. Only a row that completed successfully counts; an earlier
// attempt that failed (or died mid-flight) left processed_at null and the
// redelivery must run again.
func webhookAlreadyHandled(created bool, stored *models.PaymentWebhookEvent) bool {
	return !created && stored != nil && stored.Processed()
}

// HandleListUnprocessedWebhooks lists deliveries whose processing never
// completed, oldest first, as the manual-replay trail for operators.
func HandleListUnprocessedWebhooks(c *fiber.Ctx) error {
	_, limit := paginationParams(c)
	events, err := repository.GetGlobalFactory().GetWebhookEventRepository().ListUnprocessed(limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load webhook events")
	}
	return c.JSON(fiber.Map{"events": events})
}

// eventTypeFromBody peeks at the event field for the audit row. Unsafe bytes
// are fine here; the row is storage, not a processing decision.
func eventTypeFromBody(rawBody []byte) string {
	ev, err := payment.ParseEvent(rawBody)
	if err != nil {
		return ""
	}
	return ev.Type
}

func firstHeaderValue(c *fiber.Ctx, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(c.Get(name)); v != "" {
			return v
		}
	}
	return ""
}
