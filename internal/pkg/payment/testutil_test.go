package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/invoxly/invoxly/app/models"
	"github.com/invoxly/invoxly/internal/pkg/entitlements"
)

// fakeGateway is an in-memory Gateway with injectable failures.
type fakeGateway struct {
	mu       sync.Mutex
	orders   map[string]*GatewayOrder
	payments map[string]*GatewayPayment
	seq      int

	failCreate error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		orders:   make(map[string]*GatewayOrder),
		payments: make(map[string]*GatewayPayment),
	}
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate != nil {
		return nil, g.failCreate
	}
	g.seq++
	notes := make(map[string]string, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	order := &GatewayOrder{
		ID:               fmt.Sprintf("order_%03d", g.seq),
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         req.Currency,
		Receipt:          req.Receipt,
		Status:           "created",
		Notes:            notes,
		CreatedAt:        time.Now(),
	}
	g.orders[order.ID] = order
	return order, nil
}

func (g *fakeGateway) FetchOrder(ctx context.Context, orderID string) (*GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	order, ok := g.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (g *fakeGateway) FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	return p, nil
}

// addPayment registers a gateway-side payment against an existing order.
func (g *fakeGateway) addPayment(id, orderID, status string) *GatewayPayment {
	g.mu.Lock()
	defer g.mu.Unlock()
	order := g.orders[orderID]
	p := &GatewayPayment{
		ID:       id,
		OrderID:  orderID,
		Status:   status,
		Currency: "INR",
		Method:   "card",
	}
	if order != nil {
		p.AmountMinorUnits = order.AmountMinorUnits
		p.Currency = order.Currency
	}
	g.payments[id] = p
	return p
}

// memStore is an in-memory SubscriptionStore with injectable write failures.
type memStore struct {
	mu       sync.Mutex
	subs     map[uint]*models.Subscription
	payments map[string]*models.PaymentRecord

	casFailures int // fail the next N CompareAndSet calls
	casCalls    int
}

func newMemStore() *memStore {
	return &memStore{
		subs:     make(map[uint]*models.Subscription),
		payments: make(map[string]*models.PaymentRecord),
	}
}

func (m *memStore) Get(userID uint) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[userID]
	if !ok {
		sub = &models.Subscription{
			ID:               uint(len(m.subs) + 1),
			UserID:           userID,
			Role:             "free",
			SubscriptionType: models.SubscriptionTypeNone,
			Status:           models.SubscriptionStatusExpired,
		}
		m.subs[userID] = sub
	}
	cp := *sub
	return &cp, nil
}

func (m *memStore) CompareAndSet(current, next *models.Subscription) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	if m.casFailures > 0 {
		m.casFailures--
		return false, fmt.Errorf("injected store failure")
	}
	stored, ok := m.subs[current.UserID]
	if !ok || stored.Version != current.Version {
		return false, nil
	}
	cp := *next
	cp.Version = current.Version + 1
	m.subs[current.UserID] = &cp
	return true, nil
}

func (m *memStore) RecordPayment(rec *models.PaymentRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[rec.PaymentID]; ok {
		return false, nil
	}
	cp := *rec
	m.payments[rec.PaymentID] = &cp
	return true, nil
}

// fakeLedger records secondary-effect calls and can be told to fail.
type fakeLedger struct {
	mu    sync.Mutex
	calls []ApplyInput
	err   error
}

func (l *fakeLedger) RecordPurchase(ctx context.Context, in ApplyInput, role entitlements.Role, endDate *time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, in)
	return l.err
}

func (l *fakeLedger) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}
