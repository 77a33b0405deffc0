package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/invoxly/invoxly/internal/pkg/entitlements"
)

func newResolvedFixture(t *testing.T) (*fakeGateway, *Resolver, *OrderResult) {
	t.Helper()
	gw := newFakeGateway()
	catalog := DefaultCatalog()
	orders := NewOrderService(gw, catalog)

	res, err := orders.CreateOrder(context.Background(), 7, "pro")
	if err != nil {
		t.Fatalf("fixture order: %v", err)
	}
	return gw, NewResolver(gw, catalog), res
}

func TestResolve_HappyPath(t *testing.T) {
	gw, resolver, order := newResolvedFixture(t)
	gw.addPayment("pay_1", order.OrderID, PaymentStatusCaptured)

	got, err := resolver.Resolve(context.Background(), order.OrderID, "pay_1", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != 7 || got.PlanID != "pro" || got.Role != entitlements.RolePro {
		t.Fatalf("unexpected resolution: %+v", got)
	}
	if got.AmountMinorUnits != 24900 || got.GatewayStatus != PaymentStatusCaptured {
		t.Fatalf("unexpected amounts: %+v", got)
	}
}

func TestResolve_AuthorizedCounts(t *testing.T) {
	gw, resolver, order := newResolvedFixture(t)
	gw.addPayment("pay_1", order.OrderID, PaymentStatusAuthorized)

	if _, err := resolver.Resolve(context.Background(), order.OrderID, "pay_1", 7); err != nil {
		t.Fatalf("expected authorized payment to resolve, got %v", err)
	}
}

func TestResolve_UserMismatch(t *testing.T) {
	gw, resolver, order := newResolvedFixture(t)
	gw.addPayment("pay_1", order.OrderID, PaymentStatusCaptured)

	_, err := resolver.Resolve(context.Background(), order.OrderID, "pay_1", 8)
	if !errors.Is(err, ErrUserMismatch) {
		t.Fatalf("expected ErrUserMismatch, got %v", err)
	}
}

func TestResolve_WebhookPathSkipsUserCheck(t *testing.T) {
	gw, resolver, order := newResolvedFixture(t)
	gw.addPayment("pay_1", order.OrderID, PaymentStatusCaptured)

	got, err := resolver.Resolve(context.Background(), order.OrderID, "pay_1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != 7 {
		t.Fatalf("expected attribution from order notes, got user %d", got.UserID)
	}
}

func TestResolve_OrderNotFound(t *testing.T) {
	_, resolver, _ := newResolvedFixture(t)

	_, err := resolver.Resolve(context.Background(), "order_missing", "pay_1", 7)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestResolve_PaymentNotFound(t *testing.T) {
	_, resolver, order := newResolvedFixture(t)

	_, err := resolver.Resolve(context.Background(), order.OrderID, "pay_missing", 7)
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestResolve_PaymentIncomplete(t *testing.T) {
	gw, resolver, order := newResolvedFixture(t)
	gw.addPayment("pay_1", order.OrderID, "failed")

	_, err := resolver.Resolve(context.Background(), order.OrderID, "pay_1", 7)
	if !errors.Is(err, ErrPaymentIncomplete) {
		t.Fatalf("expected ErrPaymentIncomplete, got %v", err)
	}
}

func TestResolve_AmountFallback(t *testing.T) {
	gw := newFakeGateway()
	catalog := DefaultCatalog()
	resolver := NewResolver(gw, catalog)

	// An order created outside the order service: user note but no plan note.
	order, err := gw.CreateOrder(context.Background(), CreateOrderRequest{
		AmountMinorUnits: 24900,
		Currency:         "INR",
		Receipt:          "legacy",
		Notes:            map[string]string{NoteUserID: "9"},
	})
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	gw.addPayment("pay_1", order.ID, PaymentStatusCaptured)

	got, err := resolver.Resolve(context.Background(), order.ID, "pay_1", 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PlanID != "pro" {
		t.Fatalf("expected amount fallback to resolve pro, got %q", got.PlanID)
	}
}

func TestResolve_UnknownPlanAmount(t *testing.T) {
	gw := newFakeGateway()
	resolver := NewResolver(gw, DefaultCatalog())

	order, err := gw.CreateOrder(context.Background(), CreateOrderRequest{
		AmountMinorUnits: 14900, // the defective legacy price; matches no plan
		Currency:         "INR",
		Receipt:          "legacy",
		Notes:            map[string]string{NoteUserID: "9"},
	})
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	gw.addPayment("pay_1", order.ID, PaymentStatusCaptured)

	_, err = resolver.Resolve(context.Background(), order.ID, "pay_1", 9)
	if !errors.Is(err, ErrUnknownPlanAmount) {
		t.Fatalf("expected ErrUnknownPlanAmount, got %v", err)
	}
}

func TestResolve_Unattributed(t *testing.T) {
	gw := newFakeGateway()
	resolver := NewResolver(gw, DefaultCatalog())

	order, err := gw.CreateOrder(context.Background(), CreateOrderRequest{
		AmountMinorUnits: 24900,
		Currency:         "INR",
		Receipt:          "rogue",
	})
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	gw.addPayment("pay_1", order.ID, PaymentStatusCaptured)

	_, err = resolver.Resolve(context.Background(), order.ID, "pay_1", 0)
	if !errors.Is(err, ErrOrderUnattributed) {
		t.Fatalf("expected ErrOrderUnattributed, got %v", err)
	}
}
