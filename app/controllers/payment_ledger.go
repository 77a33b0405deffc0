package controllers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/invoxly/invoxly/app/models"
	"github.com/invoxly/invoxly/app/repository"
	"github.com/invoxly/invoxly/internal/pkg/entitlements"
	"github.com/invoxly/invoxly/internal/pkg/mail"
	"github.com/invoxly/invoxly/internal/pkg/metrics/counter"
	"github.com/invoxly/invoxly/internal/pkg/payment"
)

// purchaseLedger records the secondary effects of a granted plan purchase:
// an internal upgrade invoice, a receipt mail and the daily counter. All of
// it is best-effort; the entitlement is already written when this runs.
type purchaseLedger struct{}

func newPurchaseLedger() payment.Ledger {
	return purchaseLedger{}
}

func (purchaseLedger) RecordPurchase(ctx context.Context, in payment.ApplyInput, role entitlements.Role, endDate *time.Time) error {
	repos := repository.GetGlobalRepositories()
	now := time.Now()

	number, err := repos.Invoice.NextNumber(in.UserID, now)
	if err != nil {
		return fmt.Errorf("upgrade invoice number: %w", err)
	}

	description := fmt.Sprintf("Plan upgrade: %s", in.PlanID)
	if endDate != nil {
		description = fmt.Sprintf("%s (until %s)", description, endDate.UTC().Format("2006-01-02"))
	}

	invoice := &models.Invoice{
		UserID:   in.UserID,
		Number:   number,
		Kind:     models.InvoiceKindUpgrade,
		Status:   models.InvoiceStatusPaid,
		Currency: in.Currency,
		IssuedAt: now,
		Notes:    fmt.Sprintf("Gateway payment %s", in.PaymentID),
		Items: []models.InvoiceItem{{
			Description:         description,
			Quantity:            1,
			UnitPriceMinorUnits: in.AmountMinorUnits,
		}},
	}
	invoice.ComputeTotal()
	if err := repos.Invoice.Create(invoice); err != nil {
		return fmt.Errorf("upgrade invoice: %w", err)
	}

	if err := counter.AddPaymentApplied(); err != nil {
		log.Printf("payment counter increment failed: %v", err)
	}

	user, err := repos.User.GetByID(in.UserID)
	if err != nil {
		return fmt.Errorf("receipt recipient: %w", err)
	}
	if err := mail.SendPurchaseReceipt(user.Email, in.PlanID,
		payment.DisplayAmount(in.AmountMinorUnits, in.Currency), in.Currency); err != nil {
		return fmt.Errorf("receipt mail: %w", err)
	}

	return nil
}
