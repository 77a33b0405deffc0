package repository

import (
	"strings"

	"github.com/invoxly/invoxly/app/models"
	"gorm.io/gorm"
)

// customerRepository implements the CustomerRepository interface
type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository instance
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

// Create creates a new customer in the database
func (r *customerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// GetByID retrieves a customer by ID, scoped to its owner
func (r *customerRepository) GetByID(userID, id uint) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Where("user_id = ?", userID).First(&customer, id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetByUserID retrieves a paginated list of a user's customers
func (r *customerRepository) GetByUserID(userID uint, offset, limit int) ([]models.Customer, error) {
	var customers []models.Customer
	err := r.db.Where("user_id = ?", userID).
		Order("name ASC").Offset(offset).Limit(limit).Find(&customers).Error
	return customers, err
}

// Update updates an existing customer
func (r *customerRepository) Update(customer *models.Customer) error {
	return r.db.Save(customer).Error
}

// Delete soft deletes a customer, scoped to its owner
func (r *customerRepository) Delete(userID, id uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.Customer{}, id).Error
}

// CountByUserID returns the number of customers owned by a user
func (r *customerRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Customer{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Search searches a user's customers by name or email
func (r *customerRepository) Search(userID uint, query string) ([]models.Customer, error) {
	var customers []models.Customer
	searchPattern := "%" + strings.TrimSpace(query) + "%"
	err := r.db.Where("user_id = ? AND (name LIKE ? OR email LIKE ?)", userID, searchPattern, searchPattern).
		Find(&customers).Error
	return customers, err
}
