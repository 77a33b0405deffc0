package payment

import (
	"testing"

	"github.com/invoxly/invoxly/internal/pkg/entitlements"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	pro, ok := c.Plan("pro")
	if !ok {
		t.Fatalf("expected pro plan in catalog")
	}
	if pro.PriceMinorUnits != 24900 || pro.Currency != "INR" {
		t.Fatalf("unexpected pro pricing: %d %s", pro.PriceMinorUnits, pro.Currency)
	}
	if pro.Role != entitlements.RolePro || pro.DurationDays != 30 || pro.Lifetime() {
		t.Fatalf("unexpected pro plan shape: %+v", pro)
	}

	max, ok := c.Plan("max")
	if !ok {
		t.Fatalf("expected max plan in catalog")
	}
	if max.Role != entitlements.RoleMax || !max.Lifetime() {
		t.Fatalf("expected max to be a lifetime plan, got %+v", max)
	}
}

func TestPlanForAmount(t *testing.T) {
	c := DefaultCatalog()

	if p, ok := c.PlanForAmount(24900); !ok || p.ID != "pro" {
		t.Fatalf("expected 24900 to map to pro, got %+v ok=%v", p, ok)
	}
	if _, ok := c.PlanForAmount(14900); ok {
		t.Fatalf("expected the stale 14900 amount to match nothing")
	}
	if _, ok := c.PlanForAmount(0); ok {
		t.Fatalf("expected zero amount to match nothing")
	}
}

func TestNewCatalog_RejectsDuplicates(t *testing.T) {
	_, err := NewCatalog(
		PlanDefinition{ID: "a", PriceMinorUnits: 100, Currency: "INR", Role: entitlements.RolePro, DurationDays: 30},
		PlanDefinition{ID: "b", PriceMinorUnits: 100, Currency: "INR", Role: entitlements.RoleMax},
	)
	if err == nil {
		t.Fatalf("expected duplicate amount to be rejected")
	}

	_, err = NewCatalog(
		PlanDefinition{ID: "a", PriceMinorUnits: 100, Currency: "INR", Role: entitlements.RolePro, DurationDays: 30},
		PlanDefinition{ID: "a", PriceMinorUnits: 200, Currency: "INR", Role: entitlements.RoleMax},
	)
	if err == nil {
		t.Fatalf("expected duplicate plan id to be rejected")
	}
}

func TestDisplayAmount(t *testing.T) {
	tests := []struct {
		amount   int64
		currency string
		want     string
	}{
		{amount: 24900, currency: "INR", want: "249.00"},
		{amount: 99900, currency: "INR", want: "999.00"},
		{amount: 5, currency: "USD", want: "0.05"},
		{amount: 100, currency: "XXX", want: "1.00"},
	}
	for _, tt := range tests {
		if got := DisplayAmount(tt.amount, tt.currency); got != tt.want {
			t.Fatalf("DisplayAmount(%d, %s) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}
