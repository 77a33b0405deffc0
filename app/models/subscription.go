package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

const (
	SubscriptionTypeNone     = "none"
	SubscriptionTypePurchase = "purchase"
)

// Subscription is the per-user entitlement record. Only the subscription
// state machine in internal/pkg/payment mutates it; everything else reads.
// Version guards compare-and-set updates.
type Subscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	Role                 string     `gorm:"type:varchar(20);not null;default:'free'" json:"role"`
	SubscriptionType     string     `gorm:"type:varchar(20);not null;default:'none'" json:"subscription_type"`
	Status               string     `gorm:"type:varchar(20);not null;default:'expired'" json:"status"`
	PlanID               string     `gorm:"type:varchar(50);default:''" json:"plan_id"`
	EndDate              *time.Time `gorm:"type:timestamp;default:null" json:"end_date,omitempty"`
	LastAppliedPaymentID string     `gorm:"type:varchar(100);default:'';index" json:"last_applied_payment_id"`
	Version              uint       `gorm:"not null;default:0" json:"-"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActivePaid reports whether the record currently grants a paid role.
func (s *Subscription) IsActivePaid(now time.Time) bool {
	if s.Role == "free" || s.Status == SubscriptionStatusExpired {
		return false
	}
	if s.EndDate == nil {
		return s.Status == SubscriptionStatusActive
	}
	return now.Before(*s.EndDate)
}

// GetOrCreateSubscription loads the user's subscription row, creating the
// default free record on first touch.
func GetOrCreateSubscription(db *gorm.DB, userID uint) (*Subscription, error) {
	var sub Subscription
	err := db.Where("user_id = ?", userID).First(&sub).Error
	if err == nil {
		return &sub, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	sub = Subscription{
		UserID:           userID,
		Role:             "free",
		SubscriptionType: SubscriptionTypeNone,
		Status:           SubscriptionStatusExpired,
	}
	if err := db.Create(&sub).Error; err != nil {
		// Lost a race against a concurrent first touch; load the winner.
		if lookupErr := db.Where("user_id = ?", userID).First(&sub).Error; lookupErr == nil {
			return &sub, nil
		}
		return nil, err
	}
	return &sub, nil
}
