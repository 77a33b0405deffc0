package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	InvoiceStatusDraft = "draft"
	InvoiceStatusSent  = "sent"
	InvoiceStatusPaid  = "paid"
	InvoiceStatusVoid  = "void"
)

const (
	// InvoiceKindCustomer is a regular invoice a user issues to a customer.
	InvoiceKindCustomer = "customer"
	// InvoiceKindUpgrade is the internal receipt generated when a user's own
	// plan purchase is applied.
	InvoiceKindUpgrade = "upgrade"
)

// Invoice belongs to a user; CustomerID is null for internal upgrade
// receipts. TotalMinorUnits is denormalized from the items at write time.
type Invoice struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	CustomerID      *uint          `gorm:"index" json:"customer_id,omitempty"`
	Number          string         `gorm:"type:varchar(50);not null;uniqueIndex" json:"number"`
	Kind            string         `gorm:"type:varchar(20);not null;default:'customer'" json:"kind"`
	Status          string         `gorm:"type:varchar(20);not null;default:'draft'" json:"status" validate:"oneof=draft sent paid void"`
	Currency        string         `gorm:"type:varchar(10);not null;default:'INR'" json:"currency" validate:"required,len=3"`
	TotalMinorUnits int64          `gorm:"not null;default:0" json:"total_minor_units"`
	IssuedAt        time.Time      `gorm:"not null" json:"issued_at"`
	DueAt           *time.Time     `gorm:"type:timestamp;default:null" json:"due_at,omitempty"`
	Notes           string         `gorm:"type:text" json:"notes" validate:"max=2000"`
	Items           []InvoiceItem  `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// InvoiceItem is one line on an invoice.
type InvoiceItem struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	InvoiceID           uint   `gorm:"not null;index" json:"invoice_id"`
	ProductID           *uint  `gorm:"index" json:"product_id,omitempty"`
	Description         string `gorm:"type:varchar(500);not null" json:"description" validate:"required,max=500"`
	Quantity            int    `gorm:"not null;default:1" json:"quantity" validate:"gte=1"`
	UnitPriceMinorUnits int64  `gorm:"not null" json:"unit_price_minor_units" validate:"gte=0"`
	AmountMinorUnits    int64  `gorm:"not null" json:"amount_minor_units"`
}

func (i *Invoice) Validate() error {
	v := validator.New()

	return v.Struct(i)
}

// ComputeTotal recalculates item amounts and the invoice total.
func (i *Invoice) ComputeTotal() {
	var total int64
	for idx := range i.Items {
		item := &i.Items[idx]
		item.AmountMinorUnits = int64(item.Quantity) * item.UnitPriceMinorUnits
		total += item.AmountMinorUnits
	}
	i.TotalMinorUnits = total
}
