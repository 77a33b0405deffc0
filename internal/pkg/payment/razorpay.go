package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayGateway implements Gateway on top of the official SDK. The SDK
// returns untyped maps; everything is normalized into typed structs here so
// the rest of the pipeline never touches map[string]interface{}.
type RazorpayGateway struct {
	client *razorpay.Client
}

// sdkTimeoutSeconds caps every HTTP call the SDK makes. The SDK is not
// context-aware, so this client-level timeout is what bounds gateway calls.
const sdkTimeoutSeconds = 15

// NewRazorpayGateway builds a gateway client. Missing credentials yield
// ErrGatewayUnavailable so callers can distinguish misconfiguration from a
// bad request.
func NewRazorpayGateway(keyID, keySecret string) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("%w: missing key id or secret", ErrGatewayUnavailable)
	}
	client := razorpay.NewClient(keyID, keySecret)
	client.SetTimeout(sdkTimeoutSeconds)
	return &RazorpayGateway{client: client}, nil
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error) {
	_ = ctx // the SDK does not accept a context; the client timeout bounds the call
	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":   req.AmountMinorUnits, // smallest currency unit
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}

	order, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create order: %v", ErrGatewayUnavailable, err)
	}
	return orderFromEntity(order), nil
}

func (g *RazorpayGateway) FetchOrder(ctx context.Context, orderID string) (*GatewayOrder, error) {
	_ = ctx
	order, err := g.client.Order.Fetch(orderID, nil, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("%w: fetch order: %v", ErrGatewayUnavailable, err)
	}
	return orderFromEntity(order), nil
}

func (g *RazorpayGateway) FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	_ = ctx
	p, err := g.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
		}
		return nil, fmt.Errorf("%w: fetch payment: %v", ErrGatewayUnavailable, err)
	}
	return &GatewayPayment{
		ID:               entityString(p, "id"),
		OrderID:          entityString(p, "order_id"),
		AmountMinorUnits: entityInt64(p, "amount"),
		Currency:         entityString(p, "currency"),
		Status:           entityString(p, "status"),
		Method:           entityString(p, "method"),
	}, nil
}

func orderFromEntity(e map[string]interface{}) *GatewayOrder {
	notes := map[string]string{}
	if raw, ok := e["notes"].(map[string]interface{}); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				notes[k] = s
			}
		}
	}
	return &GatewayOrder{
		ID:               entityString(e, "id"),
		AmountMinorUnits: entityInt64(e, "amount"),
		Currency:         entityString(e, "currency"),
		Receipt:          entityString(e, "receipt"),
		Status:           entityString(e, "status"),
		Notes:            notes,
		CreatedAt:        time.Unix(entityInt64(e, "created_at"), 0),
	}
}

func entityString(e map[string]interface{}, key string) string {
	if s, ok := e[key].(string); ok {
		return s
	}
	return ""
}

func entityInt64(e map[string]interface{}, key string) int64 {
	switch v := e[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// isNotFound sniffs the SDK error for the gateway's "id does not exist"
// response. The SDK exposes no typed errors, so string matching is the only
// handle we get.
func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found")
}
