package payment

import (
	"fmt"

	"github.com/invoxly/invoxly/internal/pkg/entitlements"
)

// PlanDefinition is one row of the static plan table. DurationDays == 0 means
// a lifetime grant.
type PlanDefinition struct {
	ID              string
	PriceMinorUnits int64
	Currency        string
	Role            entitlements.Role
	DurationDays    int
}

// Lifetime reports whether the plan grants a never-expiring entitlement.
func (p PlanDefinition) Lifetime() bool {
	return p.DurationDays == 0
}

// Catalog is the process-wide plan table. Prices double as a reverse index:
// every amount is unique so a bare paid amount can be mapped back to its plan
// when order notes are unavailable.
type Catalog struct {
	byID     map[string]PlanDefinition
	byAmount map[int64]PlanDefinition
	order    []string
}

// NewCatalog builds a catalog and rejects duplicate plan IDs or amounts.
func NewCatalog(plans ...PlanDefinition) (*Catalog, error) {
	c := &Catalog{
		byID:     make(map[string]PlanDefinition, len(plans)),
		byAmount: make(map[int64]PlanDefinition, len(plans)),
	}
	for _, p := range plans {
		if p.ID == "" || p.PriceMinorUnits <= 0 {
			return nil, fmt.Errorf("catalog: invalid plan definition %+v", p)
		}
		if _, ok := c.byID[p.ID]; ok {
			return nil, fmt.Errorf("catalog: duplicate plan id %q", p.ID)
		}
		if dup, ok := c.byAmount[p.PriceMinorUnits]; ok {
			return nil, fmt.Errorf("catalog: plans %q and %q share amount %d", dup.ID, p.ID, p.PriceMinorUnits)
		}
		c.byID[p.ID] = p
		c.byAmount[p.PriceMinorUnits] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Plan looks a plan up by ID.
func (c *Catalog) Plan(planID string) (PlanDefinition, bool) {
	p, ok := c.byID[planID]
	return p, ok
}

// PlanForAmount maps a paid amount back to its plan. Exact match only.
func (c *Catalog) PlanForAmount(amountMinorUnits int64) (PlanDefinition, bool) {
	p, ok := c.byAmount[amountMinorUnits]
	return p, ok
}

// Plans returns the plan definitions in declaration order.
func (c *Catalog) Plans() []PlanDefinition {
	out := make([]PlanDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// DefaultCatalog returns the canonical plan table. Pro is priced at 24900
// minor units; older clients that quoted 14900 were wrong and are not
// represented here.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		PlanDefinition{
			ID:              "pro",
			PriceMinorUnits: 24900,
			Currency:        "INR",
			Role:            entitlements.RolePro,
			DurationDays:    30,
		},
		PlanDefinition{
			ID:              "max",
			PriceMinorUnits: 99900,
			Currency:        "INR",
			Role:            entitlements.RoleMax,
			DurationDays:    0,
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// minorUnitExponents maps supported currencies to their minor-unit exponent.
// Display helpers only; no conversion logic lives here.
var minorUnitExponents = map[string]int{
	"INR": 2,
	"USD": 2,
	"EUR": 2,
}

// DisplayAmount formats a minor-unit amount in major units, e.g. 24900 INR
// becomes "249.00". Unknown currencies fall back to an exponent of 2.
func DisplayAmount(amountMinorUnits int64, currency string) string {
	exp, ok := minorUnitExponents[currency]
	if !ok {
		exp = 2
	}
	div := int64(1)
	for i := 0; i < exp; i++ {
		div *= 10
	}
	return fmt.Sprintf("%d.%0*d", amountMinorUnits/div, exp, amountMinorUnits%div)
}
