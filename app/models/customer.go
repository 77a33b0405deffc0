package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Customer is a billing recipient owned by a user.
type Customer struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Name      string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	Email     string         `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	Phone     string         `gorm:"type:varchar(30)" json:"phone" validate:"max=30"`
	Address   string         `gorm:"type:text" json:"address" validate:"max=1000"`
	TaxID     string         `gorm:"type:varchar(50)" json:"tax_id" validate:"max=50"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Customer) Validate() error {
	v := validator.New()

	return v.Struct(c)
}
