package repository

import (
	"github.com/invoxly/invoxly/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// statsRepository implements the StatsRepository interface
type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new stats repository instance
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

// AddDailyStats adds counter deltas to the row for the given date, creating
// it on first flush. Deltas accumulate, so flushes are safe to repeat with
// fresh values.
func (r *statsRepository) AddDailyStats(date string, ordersCreated, paymentsApplied, webhooksReceived int64) error {
	stat := models.PaymentDailyStat{
		Date:             date,
		OrdersCreated:    ordersCreated,
		PaymentsApplied:  paymentsApplied,
		WebhooksReceived: webhooksReceived,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"orders_created":    gorm.Expr("orders_created + ?", ordersCreated),
			"payments_applied":  gorm.Expr("payments_applied + ?", paymentsApplied),
			"webhooks_received": gorm.Expr("webhooks_received + ?", webhooksReceived),
		}),
	}).Create(&stat).Error
}

// GetDailyStats returns the stat rows between two dates (inclusive)
func (r *statsRepository) GetDailyStats(startDate, endDate string) ([]models.PaymentDailyStat, error) {
	var stats []models.PaymentDailyStat
	err := r.db.Where("date BETWEEN ? AND ?", startDate, endDate).
		Order("date ASC").Find(&stats).Error
	return stats, err
}
