package repository

import (
	"time"

	"github.com/invoxly/invoxly/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// CreateIfNotExists inserts the delivery unless its event ID was already
// seen. Returns whether this call created the row plus the stored row.
func (r *webhookEventRepository) CreateIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.Where("event_id = ?", event.EventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// MarkProcessed stamps the delivery as successfully processed. Only
// successful processing sets processed_at; a set timestamp is what lets a
// redelivery be acked without another attempt.
func (r *webhookEventRepository) MarkProcessed(id uint) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": "",
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// MarkFailed records the processing error but leaves processed_at null, so
// the gateway's redelivery (and ListUnprocessed) get another attempt.
func (r *webhookEventRepository) MarkFailed(id uint, processingError string) error {
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).
		Update("processing_error", processingError).Error
}

// ListUnprocessed returns deliveries whose processing never completed,
// including failed attempts, oldest first, for manual replay.
func (r *webhookEventRepository) ListUnprocessed(limit int) ([]models.PaymentWebhookEvent, error) {
	var events []models.PaymentWebhookEvent
	err := r.db.Where("processed_at IS NULL").
		Order("created_at ASC").Limit(limit).Find(&events).Error
	return events, err
}
