package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// OrderService opens gateway orders for plan purchases. The user and plan are
// recorded in gateway-held notes at creation time so the verify and webhook
// paths can re-derive them without trusting the client.
type OrderService struct {
	gateway Gateway
	catalog *Catalog
	now     func() time.Time
}

// NewOrderService wires an order service. gateway may be nil when the
// integration is unconfigured; CreateOrder then degrades to
// ErrGatewayUnavailable instead of crashing.
func NewOrderService(gateway Gateway, catalog *Catalog) *OrderService {
	return &OrderService{gateway: gateway, catalog: catalog, now: time.Now}
}

// OrderResult is what the client needs to open the gateway checkout.
type OrderResult struct {
	OrderID          string
	PlanID           string
	AmountMinorUnits int64
	Currency         string
}

// CreateOrder validates the plan and opens a gateway order for it.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, planID string) (*OrderResult, error) {
	plan, ok := s.catalog.Plan(planID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlan, planID)
	}
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: integration not configured", ErrGatewayUnavailable)
	}

	receipt := fmt.Sprintf("inv_%d_%d", userID, s.now().Unix())
	order, err := s.gateway.CreateOrder(ctx, CreateOrderRequest{
		AmountMinorUnits: plan.PriceMinorUnits,
		Currency:         plan.Currency,
		Receipt:          receipt,
		Notes: map[string]string{
			NoteUserID: strconv.FormatUint(uint64(userID), 10),
			NotePlanID: plan.ID,
		},
	})
	if err != nil {
		return nil, err
	}

	return &OrderResult{
		OrderID:          order.ID,
		PlanID:           plan.ID,
		AmountMinorUnits: order.AmountMinorUnits,
		Currency:         order.Currency,
	}, nil
}
