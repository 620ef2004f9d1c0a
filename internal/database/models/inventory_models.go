package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductCategory string

const (
	ProductCategoryGlass     ProductCategory = "glass"
	ProductCategoryProfile   ProductCategory = "profile"
	ProductCategoryAccessory ProductCategory = "accessory"
)

type Product struct {
	ID            int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemCode      *string             `gorm:"size:100;uniqueIndex" json:"item_code,omitempty"`
	ItemName      string              `gorm:"size:255;not null" json:"item_name"`
	Category      ProductCategory     `gorm:"type:varchar(16);not null;check:chk_products_category,category IN ('glass','profile','accessory')" json:"category"`
	PriceFull     decimal.Decimal     `gorm:"type:numeric(14,2);not null" json:"price_full"`
	PriceHalf     decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"price_half"`
	PricePerUnit  decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"price_per_unit"`
	Stock         decimal.Decimal     `gorm:"type:numeric(14,3);not null;default:0" json:"stock"`
	AlarmQuantity decimal.Decimal     `gorm:"type:numeric(14,3);not null;default:0" json:"alarm_quantity"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// LowOnStock reports whether stock has fallen to or below the alarm threshold.
func (p Product) LowOnStock() bool {
	return p.Stock.LessThanOrEqual(p.AlarmQuantity)
}
