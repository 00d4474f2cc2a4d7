package models

import "time"

// ProductVariant overrides the parent product's price when set on a cart line.
type ProductVariant struct {
	ID        string `gorm:"column:id;type:uuid;primaryKey"`
	ProductID string `gorm:"column:product_id;type:uuid;not null;index:idx_product_variants_product"`
	Title     string `gorm:"column:title;not null"`

	PriceCents int64 `gorm:"column:price_cents;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
