package repository

import (
	"github.com/invoxly/invoxly/app/models"
	"gorm.io/gorm"
)

// productRepository implements the ProductRepository interface
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository instance
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create creates a new product in the database
func (r *productRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// GetByID retrieves a product by ID, scoped to its owner
func (r *productRepository) GetByID(userID, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.Where("user_id = ?", userID).First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetByUserID retrieves a paginated list of a user's products
func (r *productRepository) GetByUserID(userID uint, offset, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.Where("user_id = ?", userID).
		Order("name ASC").Offset(offset).Limit(limit).Find(&products).Error
	return products, err
}

// Update updates an existing product
func (r *productRepository) Update(product *models.Product) error {
	return r.db.Save(product).Error
}

// Delete soft deletes a product, scoped to its owner
func (r *productRepository) Delete(userID, id uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.Product{}, id).Error
}

// CountByUserID returns the number of products owned by a user
func (r *productRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Product{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
