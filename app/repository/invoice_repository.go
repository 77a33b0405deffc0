package repository

import (
	"fmt"
	"time"

	"github.com/invoxly/invoxly/app/models"
	"gorm.io/gorm"
)

// invoiceRepository implements the InvoiceRepository interface
type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository instance
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

// Create creates a new invoice together with its items
func (r *invoiceRepository) Create(invoice *models.Invoice) error {
	return r.db.Create(invoice).Error
}

// GetByID retrieves an invoice with its items, scoped to its owner
func (r *invoiceRepository) GetByID(userID, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.Preload("Items").Where("user_id = ?", userID).First(&invoice, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetByUserID retrieves a paginated list of a user's invoices
func (r *invoiceRepository) GetByUserID(userID uint, offset, limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Preload("Items").Where("user_id = ?", userID).
		Order("issued_at DESC").Offset(offset).Limit(limit).Find(&invoices).Error
	return invoices, err
}

// Update replaces an invoice and its items in one transaction. Items are
// rewritten wholesale because line edits arrive as the full item set.
func (r *invoiceRepository) Update(invoice *models.Invoice) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		for i := range invoice.Items {
			invoice.Items[i].ID = 0
			invoice.Items[i].InvoiceID = invoice.ID
		}
		return tx.Save(invoice).Error
	})
}

// Delete soft deletes an invoice, scoped to its owner
func (r *invoiceRepository) Delete(userID, id uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.Invoice{}, id).Error
}

// CountByUserID returns the number of invoices owned by a user
func (r *invoiceRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Invoice{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CountOpenByUserID counts customer invoices that are not yet paid or void.
// Internal upgrade receipts do not count against the free tier limit.
func (r *invoiceRepository) CountOpenByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Invoice{}).
		Where("user_id = ? AND kind = ? AND status IN ?", userID, models.InvoiceKindCustomer,
			[]string{models.InvoiceStatusDraft, models.InvoiceStatusSent}).
		Count(&count).Error
	return count, err
}

// NextNumber generates the next invoice number for a user, of the form
// INV-<year>-<sequence>. The sequence restarts each year per user.
func (r *invoiceRepository) NextNumber(userID uint, issuedAt time.Time) (string, error) {
	year := issuedAt.Year()
	prefix := fmt.Sprintf("INV-%d-", year)

	var count int64
	err := r.db.Model(&models.Invoice{}).Unscoped().
		Where("user_id = ? AND number LIKE ?", userID, prefix+"%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// UpdateStatus moves an invoice through its lifecycle, scoped to its owner
func (r *invoiceRepository) UpdateStatus(userID, id uint, status string) error {
	result := r.db.Model(&models.Invoice{}).
		Where("user_id = ? AND id = ?", userID, id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
