package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/invoxly/invoxly/internal/pkg/entitlements"
)

const testWebhookSecret = "whsec_test"

type webhookFixture struct {
	gateway   *fakeGateway
	store     *memStore
	subs      *Subscriptions
	processor *Processor
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gw := newFakeGateway()
	store := newMemStore()
	catalog := DefaultCatalog()
	subs := NewSubscriptions(store, catalog, nil)
	subs.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	proc := NewProcessor(NewResolver(gw, catalog), subs, testWebhookSecret)
	proc.now = subs.now
	return &webhookFixture{gateway: gw, store: store, subs: subs, processor: proc}
}

func capturedBody(paymentID, orderID string, amount int64) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":%d,"currency":"INR","status":"captured"}}}}`,
		paymentID, orderID, amount))
}

func TestWebhook_SignatureCheckedFirst(t *testing.T) {
	f := newWebhookFixture(t)
	body := capturedBody("pay_1", "order_001", 24900)

	_, err := f.processor.Handle(context.Background(), body, "deadbeef")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	// Even a garbage body must be rejected on the signature alone, never
	// parsed.
	_, err = f.processor.Handle(context.Background(), []byte("{not json"), "deadbeef")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for unsigned garbage, got %v", err)
	}
}

func TestWebhook_CapturedGrantsFromOrderNotes(t *testing.T) {
	f := newWebhookFixture(t)
	orders := NewOrderService(f.gateway, DefaultCatalog())
	order, err := orders.CreateOrder(context.Background(), 7, "pro")
	if err != nil {
		t.Fatalf("fixture order: %v", err)
	}
	f.gateway.addPayment("pay_1", order.OrderID, PaymentStatusCaptured)

	body := capturedBody("pay_1", order.OrderID, 24900)
	res, err := f.processor.Handle(context.Background(), body, signHex(body, testWebhookSecret))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != EventPaymentCaptured || res.Outcome == nil || !res.Outcome.Applied {
		t.Fatalf("expected an applied grant, got %+v", res)
	}

	sub, _ := f.store.Get(7)
	if sub.Role != string(entitlements.RolePro) || sub.LastAppliedPaymentID != "pay_1" {
		t.Fatalf("grant landed on the wrong state: %+v", sub)
	}
	// No other user was touched.
	other, _ := f.store.Get(8)
	if other.Role != string(entitlements.RoleFree) {
		t.Fatalf("grant leaked to another user: %+v", other)
	}
}

func TestWebhook_ReplayIsIdempotent(t *testing.T) {
	f := newWebhookFixture(t)
	orders := NewOrderService(f.gateway, DefaultCatalog())
	order, err := orders.CreateOrder(context.Background(), 7, "pro")
	if err != nil {
		t.Fatalf("fixture order: %v", err)
	}
	f.gateway.addPayment("pay_1", order.OrderID, PaymentStatusCaptured)

	body := capturedBody("pay_1", order.OrderID, 24900)
	sig := signHex(body, testWebhookSecret)

	first, err := f.processor.Handle(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	afterFirst, _ := f.store.Get(7)

	second, err := f.processor.Handle(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("replayed delivery: %v", err)
	}
	if second.Outcome == nil || !second.Outcome.AlreadyApplied {
		t.Fatalf("expected replay to be a no-op, got %+v", second)
	}

	afterSecond, _ := f.store.Get(7)
	if afterSecond.Version != afterFirst.Version {
		t.Fatalf("replay mutated the subscription: %+v vs %+v", afterSecond, afterFirst)
	}
	if first.Outcome.EndDate == nil || !second.Outcome.EndDate.Equal(*first.Outcome.EndDate) {
		t.Fatalf("replay changed the end date: %v vs %v", second.Outcome.EndDate, first.Outcome.EndDate)
	}
}

func TestWebhook_ConvergesWithVerifyPath(t *testing.T) {
	// The synchronous verify call lands first; the webhook for the same
	// payment must then be a no-op.
	f := newWebhookFixture(t)
	orders := NewOrderService(f.gateway, DefaultCatalog())
	order, err := orders.CreateOrder(context.Background(), 7, "pro")
	if err != nil {
		t.Fatalf("fixture order: %v", err)
	}
	f.gateway.addPayment("pay_1", order.OrderID, PaymentStatusCaptured)

	resolved, err := NewResolver(f.gateway, DefaultCatalog()).Resolve(context.Background(), order.OrderID, "pay_1", 7)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := f.subs.ApplyPayment(context.Background(), ApplyInput{
		UserID: resolved.UserID, PaymentID: resolved.PaymentID, OrderID: resolved.OrderID,
		PlanID: resolved.PlanID, AmountMinorUnits: resolved.AmountMinorUnits,
		Currency: resolved.Currency, GatewayStatus: resolved.GatewayStatus,
	}); err != nil {
		t.Fatalf("verify-path apply: %v", err)
	}

	body := capturedBody("pay_1", order.OrderID, 24900)
	res, err := f.processor.Handle(context.Background(), body, signHex(body, testWebhookSecret))
	if err != nil {
		t.Fatalf("webhook delivery: %v", err)
	}
	if res.Outcome == nil || !res.Outcome.AlreadyApplied {
		t.Fatalf("expected the webhook to observe the existing grant, got %+v", res)
	}
}

func TestWebhook_FailedPaymentChangesNothing(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_001","status":"failed","error_description":"card declined"}}}}`)

	res, err := f.processor.Handle(context.Background(), body, signHex(body, testWebhookSecret))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != EventPaymentFailed || res.Outcome != nil {
		t.Fatalf("expected failure to be record-only, got %+v", res)
	}
}

func TestWebhook_UnknownEventAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{"event":"refund.processed","payload":{}}`)

	res, err := f.processor.Handle(context.Background(), body, signHex(body, testWebhookSecret))
	if err != nil {
		t.Fatalf("unknown events must not error: %v", err)
	}
	if !res.Ignored || res.Kind != EventUnknown {
		t.Fatalf("expected unknown event to be ignored, got %+v", res)
	}
}

func TestWebhook_MalformedSignedBody(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{"payload":{}}`)

	if _, err := f.processor.Handle(context.Background(), body, signHex(body, testWebhookSecret)); err == nil {
		t.Fatalf("expected error for signed body without event type")
	}
}

func TestWebhook_SubscriptionCancelled(t *testing.T) {
	f := newWebhookFixture(t)
	orders := NewOrderService(f.gateway, DefaultCatalog())
	order, err := orders.CreateOrder(context.Background(), 7, "pro")
	if err != nil {
		t.Fatalf("fixture order: %v", err)
	}
	f.gateway.addPayment("pay_1", order.OrderID, PaymentStatusCaptured)
	captured := capturedBody("pay_1", order.OrderID, 24900)
	if _, err := f.processor.Handle(context.Background(), captured, signHex(captured, testWebhookSecret)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	endedAt := f.subs.now().Add(-time.Hour).Unix()
	body := []byte(fmt.Sprintf(
		`{"event":"subscription.cancelled","payload":{"subscription":{"entity":{"id":"sub_1","ended_at":%d,"notes":{"user_id":"7"}}}}}`,
		endedAt))
	res, err := f.processor.Handle(context.Background(), body, signHex(body, testWebhookSecret))
	if err != nil {
		t.Fatalf("cancel delivery: %v", err)
	}
	if res.Kind != EventSubscriptionCancelled {
		t.Fatalf("unexpected result: %+v", res)
	}

	// ended_at is in the past, so the opportunistic expiry downgrades now.
	sub, _ := f.store.Get(7)
	if sub.Role != string(entitlements.RoleFree) {
		t.Fatalf("expected downgrade after past-dated cancellation, got %+v", sub)
	}
}

func TestWebhook_CancelledWithoutAttribution(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{"event":"subscription.cancelled","payload":{"subscription":{"entity":{"id":"sub_x","notes":{}}}}}`)

	res, err := f.processor.Handle(context.Background(), body, signHex(body, testWebhookSecret))
	if err != nil {
		t.Fatalf("unattributed cancellations must be acknowledged: %v", err)
	}
	if !res.Ignored {
		t.Fatalf("expected unattributed cancellation to be ignored, got %+v", res)
	}
}

func TestWebhook_CancelledForFreeUserAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{"event":"subscription.cancelled","payload":{"subscription":{"entity":{"id":"sub_1","notes":{"user_id":"7"}}}}}`)

	// No active subscription; the delivery still succeeds so the gateway
	// stops retrying.
	if _, err := f.processor.Handle(context.Background(), body, signHex(body, testWebhookSecret)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWebhook_RedeliveryAfterTransientFailureGrants(t *testing.T) {
	f := newWebhookFixture(t)
	orders := NewOrderService(f.gateway, DefaultCatalog())
	order, err := orders.CreateOrder(context.Background(), 9, "pro")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	f.gateway.addPayment("pay_redeliver", order.OrderID, PaymentStatusCaptured)
	body := capturedBody("pay_redeliver", order.OrderID, 24900)
	sig := signHex(body, testWebhookSecret)

	// First delivery arrives while the order cannot be fetched back from the
	// gateway. Processing must fail, not ack.
	full := f.gateway.orders[order.OrderID]
	delete(f.gateway.orders, order.OrderID)
	if _, err := f.processor.Handle(context.Background(), body, sig); err == nil {
		t.Fatal("expected delivery to fail while the order is unreachable")
	}

	sub, err := f.store.Get(9)
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if sub.Role != "free" {
		t.Fatalf("failed delivery must not grant, got role %q", sub.Role)
	}

	// The gateway redelivers the same event after the outage clears; the
	// grant must land on that attempt.
	f.gateway.orders[order.OrderID] = full
	res, err := f.processor.Handle(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if res.Outcome == nil || !res.Outcome.Applied {
		t.Fatalf("expected redelivery to apply the payment, got %+v", res.Outcome)
	}

	sub, err = f.store.Get(9)
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if sub.Role != string(entitlements.RolePro) {
		t.Fatalf("expected role pro after redelivery, got %q", sub.Role)
	}
}
