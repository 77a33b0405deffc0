package models

import "time"

// PaymentDailyStat holds per-day payment pipeline counters, batch-flushed
// from Redis by the metrics counter package.
type PaymentDailyStat struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Date             string    `gorm:"type:varchar(10);not null;uniqueIndex" json:"date"`
	OrdersCreated    int64     `gorm:"not null;default:0" json:"orders_created"`
	PaymentsApplied  int64     `gorm:"not null;default:0" json:"payments_applied"`
	WebhooksReceived int64     `gorm:"not null;default:0" json:"webhooks_received"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
