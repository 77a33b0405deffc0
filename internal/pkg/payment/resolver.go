package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/invoxly/invoxly/internal/pkg/entitlements"
)

// Resolver turns a client-reported payment reference into an authoritative
// resolution by round-tripping through the gateway. Nothing client-supplied
// beyond the two IDs is trusted.
type Resolver struct {
	gateway Gateway
	catalog *Catalog
}

func NewResolver(gateway Gateway, catalog *Catalog) *Resolver {
	return &Resolver{gateway: gateway, catalog: catalog}
}

// ResolvedPayment is the outcome of a successful resolution.
type ResolvedPayment struct {
	UserID           uint
	PlanID           string
	Role             entitlements.Role
	AmountMinorUnits int64
	Currency         string
	GatewayStatus    string
	OrderID          string
	PaymentID        string
}

// Resolve fetches the order and payment from the gateway and derives the
// entitled plan. claimedUserID guards the synchronous verify path against a
// caller claiming another user's payment; pass 0 on the webhook path where
// the order notes alone are authoritative.
func (r *Resolver) Resolve(ctx context.Context, orderID, paymentID string, claimedUserID uint) (*ResolvedPayment, error) {
	if r.gateway == nil {
		return nil, fmt.Errorf("%w: integration not configured", ErrGatewayUnavailable)
	}

	order, err := r.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	userID, err := orderUserID(order)
	if err != nil {
		return nil, err
	}
	if claimedUserID != 0 && userID != claimedUserID {
		return nil, fmt.Errorf("%w: order %s", ErrUserMismatch, orderID)
	}

	pay, err := r.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !pay.Captured() {
		return nil, fmt.Errorf("%w: status %q", ErrPaymentIncomplete, pay.Status)
	}

	plan, err := r.derivePlan(order, pay)
	if err != nil {
		return nil, err
	}

	return &ResolvedPayment{
		UserID:           userID,
		PlanID:           plan.ID,
		Role:             plan.Role,
		AmountMinorUnits: pay.AmountMinorUnits,
		Currency:         pay.Currency,
		GatewayStatus:    pay.Status,
		OrderID:          order.ID,
		PaymentID:        pay.ID,
	}, nil
}

// derivePlan prefers the plan recorded in the order notes at creation time.
// Only when no plan note exists does it fall back to an exact amount match
// against the catalog.
func (r *Resolver) derivePlan(order *GatewayOrder, pay *GatewayPayment) (PlanDefinition, error) {
	if planID, ok := order.Notes[NotePlanID]; ok && planID != "" {
		plan, ok := r.catalog.Plan(planID)
		if !ok {
			return PlanDefinition{}, fmt.Errorf("%w: noted plan %q", ErrInvalidPlan, planID)
		}
		return plan, nil
	}
	plan, ok := r.catalog.PlanForAmount(pay.AmountMinorUnits)
	if !ok {
		return PlanDefinition{}, fmt.Errorf("%w: %d %s", ErrUnknownPlanAmount, pay.AmountMinorUnits, pay.Currency)
	}
	return plan, nil
}

func orderUserID(order *GatewayOrder) (uint, error) {
	raw, ok := order.Notes[NoteUserID]
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: order %s", ErrOrderUnattributed, order.ID)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: order %s", ErrOrderUnattributed, order.ID)
	}
	return uint(id), nil
}
