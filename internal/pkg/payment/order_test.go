package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCreateOrder(t *testing.T) {
	gw := newFakeGateway()
	svc := NewOrderService(gw, DefaultCatalog())

	res, err := svc.CreateOrder(context.Background(), 42, "pro")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AmountMinorUnits != 24900 || res.Currency != "INR" || res.PlanID != "pro" {
		t.Fatalf("unexpected order result: %+v", res)
	}

	order, err := gw.FetchOrder(context.Background(), res.OrderID)
	if err != nil {
		t.Fatalf("order not recorded at gateway: %v", err)
	}
	if order.Notes[NoteUserID] != "42" || order.Notes[NotePlanID] != "pro" {
		t.Fatalf("expected user/plan attribution in order notes, got %v", order.Notes)
	}
	if !strings.HasPrefix(order.Receipt, "inv_42_") {
		t.Fatalf("expected receipt to carry the user id, got %q", order.Receipt)
	}
}

func TestCreateOrder_InvalidPlan(t *testing.T) {
	svc := NewOrderService(newFakeGateway(), DefaultCatalog())

	_, err := svc.CreateOrder(context.Background(), 42, "platinum")
	if !errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}
}

func TestCreateOrder_GatewayUnconfigured(t *testing.T) {
	svc := NewOrderService(nil, DefaultCatalog())

	_, err := svc.CreateOrder(context.Background(), 42, "pro")
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestCreateOrder_GatewayError(t *testing.T) {
	gw := newFakeGateway()
	gw.failCreate = errors.New("gateway 5xx")
	svc := NewOrderService(gw, DefaultCatalog())

	if _, err := svc.CreateOrder(context.Background(), 42, "pro"); err == nil {
		t.Fatalf("expected gateway error to propagate")
	}
}
