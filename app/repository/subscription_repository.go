package repository

import (
	"github.com/invoxly/invoxly/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Get loads the user's subscription row, creating the default free record on
// first touch.
func (r *subscriptionRepository) Get(userID uint) (*models.Subscription, error) {
	return models.GetOrCreateSubscription(r.db, userID)
}

// CompareAndSet writes next only if the stored row still carries current's
// version. RowsAffected tells losers apart from winners; losing is not an
// error, the caller reloads and retries.
func (r *subscriptionRepository) CompareAndSet(current, next *models.Subscription) (bool, error) {
	result := r.db.Model(&models.Subscription{}).
		Where("user_id = ? AND version = ?", current.UserID, current.Version).
		Updates(map[string]interface{}{
			"role":                    next.Role,
			"subscription_type":       next.SubscriptionType,
			"status":                  next.Status,
			"plan_id":                 next.PlanID,
			"end_date":                next.EndDate,
			"last_applied_payment_id": next.LastAppliedPaymentID,
			"version":                 current.Version + 1,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecordPayment inserts the append-only audit row. The unique payment_id
// index makes the insert a no-op for duplicates; RowsAffected reports
// whether this call was the first.
func (r *subscriptionRepository) RecordPayment(rec *models.PaymentRecord) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_id"}},
		DoNothing: true,
	}).Create(rec)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// PaymentsByUserID lists a user's applied payments, newest first
func (r *subscriptionRepository) PaymentsByUserID(userID uint, offset, limit int) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := r.db.Where("user_id = ?", userID).
		Order("observed_at DESC").Offset(offset).Limit(limit).Find(&records).Error
	return records, err
}
