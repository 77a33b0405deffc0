package payment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/invoxly/invoxly/app/models"
	"github.com/invoxly/invoxly/internal/pkg/entitlements"
)

// SubscriptionStore is the narrow persistence contract of the state machine.
// The production implementation lives in app/repository; tests use an
// in-memory fake.
type SubscriptionStore interface {
	// Get loads (or lazily creates) the user's subscription record.
	Get(userID uint) (*models.Subscription, error)
	// CompareAndSet writes next only if the stored row still carries
	// current's version. Returns false on a version conflict.
	CompareAndSet(current, next *models.Subscription) (bool, error)
	// RecordPayment inserts the append-only audit row. Returns false when a
	// row for the same payment ID already exists.
	RecordPayment(rec *models.PaymentRecord) (bool, error)
}

// Ledger receives the secondary effects of a successful grant (internal
// upgrade invoice, receipt mail, counters). Failures here are reported but
// never roll back the grant.
type Ledger interface {
	RecordPurchase(ctx context.Context, in ApplyInput, role entitlements.Role, endDate *time.Time) error
}

// ApplyInput identifies a resolved, gateway-verified payment to apply.
type ApplyInput struct {
	UserID           uint
	PaymentID        string
	OrderID          string
	PlanID           string
	AmountMinorUnits int64
	Currency         string
	GatewayStatus    string
}

// ApplyOutcome distinguishes the primary grant from secondary effects so a
// real payment is never reported as failed just because the audit trail
// hiccuped.
type ApplyOutcome struct {
	Applied        bool
	AlreadyApplied bool
	Role           entitlements.Role
	EndDate        *time.Time
	LedgerErr      error
}

const (
	storeRetries    = 3
	storeRetryDelay = 100 * time.Millisecond
)

// Subscriptions is the state machine over per-user subscription records. It
// is the only component allowed to mutate them. All mutations serialize per
// user and are idempotent on the payment ID, so the synchronous verify path
// and at-least-once webhooks converge regardless of ordering or duplication.
type Subscriptions struct {
	store   SubscriptionStore
	catalog *Catalog
	ledger  Ledger
	locks   *userLocks
	now     func() time.Time
}

func NewSubscriptions(store SubscriptionStore, catalog *Catalog, ledger Ledger) *Subscriptions {
	return &Subscriptions{
		store:   store,
		catalog: catalog,
		ledger:  ledger,
		locks:   newUserLocks(),
		now:     time.Now,
	}
}

// ApplyPayment grants the entitlement for a verified payment exactly once.
// Callers must pass a context detached from the client connection: the money
// has already moved, so an aborted request must not abandon the write.
func (s *Subscriptions) ApplyPayment(ctx context.Context, in ApplyInput) (*ApplyOutcome, error) {
	plan, ok := s.catalog.Plan(in.PlanID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlan, in.PlanID)
	}

	unlock := s.locks.lock(in.UserID)
	defer unlock()

	sub, err := s.getWithRetry(in.UserID)
	if err != nil {
		return nil, err
	}

	if sub.LastAppliedPaymentID == in.PaymentID {
		return s.alreadyApplied(sub), nil
	}

	// The unique payment_id row is the cross-process idempotency guard; the
	// in-process check above only short-circuits the common duplicate.
	inserted, err := s.recordPaymentWithRetry(&models.PaymentRecord{
		UserID:           in.UserID,
		OrderID:          in.OrderID,
		PaymentID:        in.PaymentID,
		AmountMinorUnits: in.AmountMinorUnits,
		Currency:         in.Currency,
		Status:           in.GatewayStatus,
		PlanID:           in.PlanID,
		ObservedAt:       s.now(),
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return s.alreadyApplied(sub), nil
	}

	now := s.now()
	next := *sub
	next.Role = string(plan.Role)
	next.SubscriptionType = models.SubscriptionTypePurchase
	next.Status = models.SubscriptionStatusActive
	next.PlanID = plan.ID
	next.LastAppliedPaymentID = in.PaymentID
	if plan.Lifetime() {
		next.EndDate = nil
	} else {
		end := now.Add(time.Duration(plan.DurationDays) * 24 * time.Hour)
		next.EndDate = &end
	}

	if err := s.casWithRetry(sub, &next); err != nil {
		// The payment record exists but the entitlement write failed after
		// all retries. This is the worst failure mode in the pipeline; flag
		// it loudly for manual reconciliation.
		log.Printf("ALERT: entitlement write failed after retries, needs manual reconciliation: user=%d payment=%s plan=%s err=%v",
			in.UserID, in.PaymentID, in.PlanID, err)
		return nil, err
	}

	outcome := &ApplyOutcome{
		Applied: true,
		Role:    plan.Role,
		EndDate: next.EndDate,
	}
	if s.ledger != nil {
		if err := s.ledger.RecordPurchase(ctx, in, plan.Role, next.EndDate); err != nil {
			log.Printf("Warning: purchase ledger write failed (entitlement already granted): user=%d payment=%s err=%v",
				in.UserID, in.PaymentID, err)
			outcome.LedgerErr = err
		}
	}
	return outcome, nil
}

// Cancel marks the subscription canceled effective endsAt. The role stays in
// place until the end date passes; ExpireIfDue does the downgrade.
func (s *Subscriptions) Cancel(ctx context.Context, userID uint, endsAt time.Time) error {
	_ = ctx

	unlock := s.locks.lock(userID)
	defer unlock()

	sub, err := s.getWithRetry(userID)
	if err != nil {
		return err
	}
	if sub.Status != models.SubscriptionStatusActive || !entitlements.IsPaid(entitlements.NormalizeRole(sub.Role)) {
		return ErrNoActiveSubscription
	}

	next := *sub
	next.Status = models.SubscriptionStatusCanceled
	if next.EndDate == nil || endsAt.Before(*next.EndDate) {
		next.EndDate = &endsAt
	}
	return s.casWithRetry(sub, &next)
}

// ExpireIfDue downgrades a lapsed subscription to free. Evaluated
// opportunistically on webhook receipt and profile reads; there is no
// background timer, so a stale grant can outlive its end date until the next
// touch. That bounded over-grant is the accepted failure mode.
func (s *Subscriptions) ExpireIfDue(ctx context.Context, userID uint) error {
	_ = ctx

	unlock := s.locks.lock(userID)
	defer unlock()

	sub, err := s.getWithRetry(userID)
	if err != nil {
		return err
	}
	if sub.EndDate == nil || sub.Status == models.SubscriptionStatusExpired {
		return nil
	}
	if s.now().Before(*sub.EndDate) {
		return nil
	}

	next := *sub
	next.Role = string(entitlements.RoleFree)
	next.Status = models.SubscriptionStatusExpired
	return s.casWithRetry(sub, &next)
}

// Current returns the user's subscription record without mutating it.
func (s *Subscriptions) Current(userID uint) (*models.Subscription, error) {
	return s.store.Get(userID)
}

func (s *Subscriptions) alreadyApplied(sub *models.Subscription) *ApplyOutcome {
	return &ApplyOutcome{
		AlreadyApplied: true,
		Role:           entitlements.NormalizeRole(sub.Role),
		EndDate:        sub.EndDate,
	}
}

func (s *Subscriptions) getWithRetry(userID uint) (*models.Subscription, error) {
	var sub *models.Subscription
	err := s.retry(func() error {
		var e error
		sub, e = s.store.Get(userID)
		return e
	})
	return sub, err
}

func (s *Subscriptions) recordPaymentWithRetry(rec *models.PaymentRecord) (bool, error) {
	var inserted bool
	err := s.retry(func() error {
		var e error
		inserted, e = s.store.RecordPayment(rec)
		return e
	})
	return inserted, err
}

// casWithRetry retries both transient store errors and version conflicts.
// On conflict the row is reloaded and next is rebased onto the fresh version;
// the caller's lock makes conflicts rare (another process, not another
// goroutine).
func (s *Subscriptions) casWithRetry(current, next *models.Subscription) error {
	cur := current
	for attempt := 0; attempt < storeRetries; attempt++ {
		next.Version = cur.Version
		ok, err := s.store.CompareAndSet(cur, next)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			log.Printf("subscription store write failed (try %d/%d): %v", attempt+1, storeRetries, err)
		}
		if attempt < storeRetries-1 {
			time.Sleep(storeRetryDelay << attempt)
			fresh, getErr := s.store.Get(cur.UserID)
			if getErr == nil {
				cur = fresh
			}
		}
	}
	return fmt.Errorf("subscription write for user %d did not converge after %d attempts", current.UserID, storeRetries)
}

func (s *Subscriptions) retry(op func() error) error {
	var err error
	for attempt := 0; attempt < storeRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt < storeRetries-1 {
			time.Sleep(storeRetryDelay << attempt)
		}
	}
	return err
}
