package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Product is a sellable line-item template owned by a user. Prices are kept
// in minor currency units throughout.
type Product struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	UserID              uint           `gorm:"not null;index" json:"user_id"`
	Name                string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	Description         string         `gorm:"type:text" json:"description" validate:"max=2000"`
	UnitPriceMinorUnits int64          `gorm:"not null" json:"unit_price_minor_units" validate:"gte=0"`
	Currency            string         `gorm:"type:varchar(10);not null;default:'INR'" json:"currency" validate:"required,len=3"`
	TaxRateBps          int            `gorm:"not null;default:0" json:"tax_rate_bps" validate:"gte=0,lte=10000"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Product) Validate() error {
	v := validator.New()

	return v.Struct(p)
}
