package models

import "time"

// PaymentRecord is the append-only audit row for an applied payment. Rows are
// never updated after insert; the unique payment_id index doubles as the
// idempotency key for "have we already applied this payment".
type PaymentRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	OrderID          string    `gorm:"type:varchar(100);not null;index" json:"order_id"`
	PaymentID        string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"payment_id"`
	AmountMinorUnits int64     `gorm:"not null" json:"amount_minor_units"`
	Currency         string    `gorm:"type:varchar(10);not null" json:"currency"`
	Status           string    `gorm:"type:varchar(32);not null" json:"status"`
	PlanID           string    `gorm:"type:varchar(50);not null" json:"plan_id"`
	ObservedAt       time.Time `gorm:"not null" json:"observed_at"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}
