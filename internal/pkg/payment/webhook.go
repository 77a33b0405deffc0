package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"
)

// EventKind is the closed set of webhook events this pipeline acts on.
// Anything else is EventUnknown and gets acknowledged without processing, so
// the gateway is never penalized for adding event types.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventPaymentCaptured
	EventPaymentFailed
	EventSubscriptionCancelled
)

// Event is a parsed, typed webhook delivery.
type Event struct {
	Kind         EventKind
	Type         string
	Payment      *EventPayment
	Subscription *EventSubscription
}

// EventPayment carries the payment entity of payment.* events.
type EventPayment struct {
	ID               string
	OrderID          string
	AmountMinorUnits int64
	Currency         string
	Status           string
	ErrorDescription string
}

// EventSubscription carries the subscription entity of subscription.* events.
type EventSubscription struct {
	ID      string
	UserID  uint
	EndedAt *time.Time
}

// webhookEnvelope mirrors the gateway's wire shape. Entities nest under
// payload.<type>.entity.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Amount           int64  `json:"amount"`
				Currency         string `json:"currency"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Subscription struct {
			Entity struct {
				ID      string            `json:"id"`
				EndedAt *int64            `json:"ended_at"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"subscription"`
	} `json:"payload"`
}

// ParseEvent maps a raw webhook body to a typed event. Only call after the
// signature has been verified; this is the first place untrusted bytes get
// parsed.
func ParseEvent(raw []byte) (*Event, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("webhook payload has no event type")
	}

	ev := &Event{Type: env.Event}
	switch env.Event {
	case "payment.captured", "payment.authorized":
		ev.Kind = EventPaymentCaptured
	case "payment.failed":
		ev.Kind = EventPaymentFailed
	case "subscription.cancelled":
		ev.Kind = EventSubscriptionCancelled
	default:
		ev.Kind = EventUnknown
		return ev, nil
	}

	switch ev.Kind {
	case EventPaymentCaptured, EventPaymentFailed:
		p := env.Payload.Payment.Entity
		if p.ID == "" {
			return nil, fmt.Errorf("%s event without payment entity", env.Event)
		}
		ev.Payment = &EventPayment{
			ID:               p.ID,
			OrderID:          p.OrderID,
			AmountMinorUnits: p.Amount,
			Currency:         p.Currency,
			Status:           p.Status,
			ErrorDescription: p.ErrorDescription,
		}
	case EventSubscriptionCancelled:
		sEnt := env.Payload.Subscription.Entity
		if sEnt.ID == "" {
			return nil, fmt.Errorf("%s event without subscription entity", env.Event)
		}
		sub := &EventSubscription{ID: sEnt.ID}
		if sEnt.EndedAt != nil && *sEnt.EndedAt > 0 {
			t := time.Unix(*sEnt.EndedAt, 0)
			sub.EndedAt = &t
		}
		if raw, ok := sEnt.Notes[NoteUserID]; ok && raw != "" {
			if uid, err := strconv.ParseUint(raw, 10, 64); err == nil && uid > 0 {
				sub.UserID = uint(uid)
			}
		}
		ev.Subscription = sub
	}
	return ev, nil
}

// HandleResult reports what a webhook delivery did.
type HandleResult struct {
	Kind    EventKind
	Ignored bool
	Outcome *ApplyOutcome
}

// Processor routes verified webhook events into the subscription state
// machine. Delivery is at-least-once and may race the synchronous verify
// call; correctness rests on ApplyPayment's idempotency, not on ordering.
type Processor struct {
	resolver      *Resolver
	subscriptions *Subscriptions
	webhookSecret string
	now           func() time.Time
}

func NewProcessor(resolver *Resolver, subscriptions *Subscriptions, webhookSecret string) *Processor {
	return &Processor{
		resolver:      resolver,
		subscriptions: subscriptions,
		webhookSecret: webhookSecret,
		now:           time.Now,
	}
}

// Handle verifies and processes one raw webhook delivery. The signature is
// checked over the exact raw bytes before any JSON parsing.
func (p *Processor) Handle(ctx context.Context, rawBody []byte, signature string) (*HandleResult, error) {
	if !VerifySignature(rawBody, signature, p.webhookSecret) {
		return nil, ErrInvalidSignature
	}

	ev, err := ParseEvent(rawBody)
	if err != nil {
		return nil, err
	}

	switch ev.Kind {
	case EventPaymentCaptured:
		return p.handlePaymentCaptured(ctx, ev)
	case EventPaymentFailed:
		// Record only; a failed payment changes no state.
		log.Printf("payment failed at gateway: payment=%s order=%s reason=%s",
			ev.Payment.ID, ev.Payment.OrderID, ev.Payment.ErrorDescription)
		return &HandleResult{Kind: ev.Kind}, nil
	case EventSubscriptionCancelled:
		return p.handleSubscriptionCancelled(ctx, ev)
	default:
		return &HandleResult{Kind: EventUnknown, Ignored: true}, nil
	}
}

func (p *Processor) handlePaymentCaptured(ctx context.Context, ev *Event) (*HandleResult, error) {
	if ev.Payment.OrderID == "" {
		return nil, fmt.Errorf("%s event without order reference", ev.Type)
	}

	// The webhook carries no session; the order notes are the sole
	// attribution, so claimedUserID is zero.
	resolved, err := p.resolver.Resolve(ctx, ev.Payment.OrderID, ev.Payment.ID, 0)
	if err != nil {
		return nil, err
	}

	outcome, err := p.subscriptions.ApplyPayment(ctx, ApplyInput{
		UserID:           resolved.UserID,
		PaymentID:        resolved.PaymentID,
		OrderID:          resolved.OrderID,
		PlanID:           resolved.PlanID,
		AmountMinorUnits: resolved.AmountMinorUnits,
		Currency:         resolved.Currency,
		GatewayStatus:    resolved.GatewayStatus,
	})
	if err != nil {
		return nil, err
	}
	return &HandleResult{Kind: ev.Kind, Outcome: outcome}, nil
}

func (p *Processor) handleSubscriptionCancelled(ctx context.Context, ev *Event) (*HandleResult, error) {
	if ev.Subscription.UserID == 0 {
		// Not one of ours; acknowledge rather than bounce so the gateway
		// stops retrying.
		log.Printf("subscription.cancelled without user attribution: subscription=%s", ev.Subscription.ID)
		return &HandleResult{Kind: ev.Kind, Ignored: true}, nil
	}

	endsAt := p.now()
	if ev.Subscription.EndedAt != nil {
		endsAt = *ev.Subscription.EndedAt
	}
	if err := p.subscriptions.Cancel(ctx, ev.Subscription.UserID, endsAt); err != nil && err != ErrNoActiveSubscription {
		return nil, err
	}
	if err := p.subscriptions.ExpireIfDue(ctx, ev.Subscription.UserID); err != nil {
		return nil, err
	}
	return &HandleResult{Kind: ev.Kind}, nil
}
