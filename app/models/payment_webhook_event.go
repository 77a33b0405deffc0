package models

import "time"

// PaymentWebhookEvent stores gateway webhook deliveries with deduplication
// metadata. Processing correctness does not depend on these rows (the payment
// record is the idempotency key); they exist for delivery dedupe and as a
// manual-retry trail when processing fails.
type PaymentWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	EventID         string     `gorm:"type:varchar(191);not null;default:'';uniqueIndex" json:"event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false;index" json:"signature_valid"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Processed reports whether the delivery completed processing successfully.
// A row with only ProcessingError set failed and is eligible for another
// attempt.
func (e *PaymentWebhookEvent) Processed() bool {
	return e.ProcessedAt != nil
}
