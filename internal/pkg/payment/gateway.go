package payment

import (
	"context"
	"time"
)

// Note keys stored server-side at the gateway when an order is created.
// These are the authoritative user/plan attribution for a payment; nothing
// the client sends back is trusted without a round trip through them.
const (
	NoteUserID = "user_id"
	NotePlanID = "plan_id"
)

// Gateway-side payment statuses that count as paid.
const (
	PaymentStatusCaptured   = "captured"
	PaymentStatusAuthorized = "authorized"
)

// GatewayOrder is the authoritative order record held by the gateway.
type GatewayOrder struct {
	ID               string
	AmountMinorUnits int64
	Currency         string
	Receipt          string
	Status           string
	Notes            map[string]string
	CreatedAt        time.Time
}

// GatewayPayment is the authoritative payment record held by the gateway.
type GatewayPayment struct {
	ID               string
	OrderID          string
	AmountMinorUnits int64
	Currency         string
	Status           string
	Method           string
}

// Captured reports whether the payment has actually been collected
// (or at least authorized, which the gateway will settle).
func (p GatewayPayment) Captured() bool {
	return p.Status == PaymentStatusCaptured || p.Status == PaymentStatusAuthorized
}

// CreateOrderRequest describes an order to open at the gateway.
type CreateOrderRequest struct {
	AmountMinorUnits int64
	Currency         string
	Receipt          string
	Notes            map[string]string
}

// Gateway is the narrow contract against the payment processor. The real
// implementation wraps the Razorpay SDK; tests use an in-memory fake.
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error)
	FetchOrder(ctx context.Context, orderID string) (*GatewayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
}
