package repository

import (
	"time"

	"github.com/invoxly/invoxly/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	TouchLastLogin(id uint, at time.Time) error
}

// CustomerRepository defines the interface for customer-related operations
type CustomerRepository interface {
	Create(customer *models.Customer) error
	GetByID(userID, id uint) (*models.Customer, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Customer, error)
	Update(customer *models.Customer) error
	Delete(userID, id uint) error
	CountByUserID(userID uint) (int64, error)
	Search(userID uint, query string) ([]models.Customer, error)
}

// ProductRepository defines the interface for product-related operations
type ProductRepository interface {
	Create(product *models.Product) error
	GetByID(userID, id uint) (*models.Product, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Product, error)
	Update(product *models.Product) error
	Delete(userID, id uint) error
	CountByUserID(userID uint) (int64, error)
}

// InvoiceRepository defines the interface for invoice-related operations
type InvoiceRepository interface {
	Create(invoice *models.Invoice) error
	GetByID(userID, id uint) (*models.Invoice, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Invoice, error)
	Update(invoice *models.Invoice) error
	Delete(userID, id uint) error
	CountByUserID(userID uint) (int64, error)
	CountOpenByUserID(userID uint) (int64, error)
	NextNumber(userID uint, issuedAt time.Time) (string, error)
	UpdateStatus(userID, id uint, status string) error
}

// SubscriptionRepository persists per-user entitlement records. It satisfies
// the store contract of the payment state machine.
type SubscriptionRepository interface {
	Get(userID uint) (*models.Subscription, error)
	CompareAndSet(current, next *models.Subscription) (bool, error)
	RecordPayment(rec *models.PaymentRecord) (bool, error)
	PaymentsByUserID(userID uint, offset, limit int) ([]models.PaymentRecord, error)
}

// WebhookEventRepository stores gateway webhook deliveries for dedupe and
// manual retry. processed_at is only ever set on success; failed attempts
// keep it null so redeliveries are reprocessed.
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkProcessed(id uint) error
	MarkFailed(id uint, processingError string) error
	ListUnprocessed(limit int) ([]models.PaymentWebhookEvent, error)
}

// StatsRepository persists aggregated payment pipeline counters.
type StatsRepository interface {
	AddDailyStats(date string, ordersCreated, paymentsApplied, webhooksReceived int64) error
	GetDailyStats(startDate, endDate string) ([]models.PaymentDailyStat, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Customer     CustomerRepository
	Product      ProductRepository
	Invoice      InvoiceRepository
	Subscription SubscriptionRepository
	WebhookEvent WebhookEventRepository
	Stats        StatsRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Customer:     NewCustomerRepository(db),
		Product:      NewProductRepository(db),
		Invoice:      NewInvoiceRepository(db),
		Subscription: NewSubscriptionRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
		Stats:        NewStatsRepository(db),
	}
}
