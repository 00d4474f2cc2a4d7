package models

import (
	"time"

	dbtypes "github.com/mirabelleshop/cart-backend/pkg/db/types"
)

// Product is the catalog projection the cart needs: title, handle, imagery
// and the base price in cents.
type Product struct {
	ID     string `gorm:"column:id;type:uuid;primaryKey"`
	Title  string `gorm:"column:title;not null"`
	Handle string `gorm:"column:handle;not null;uniqueIndex:idx_products_handle"`

	Thumbnail string             `gorm:"column:thumbnail"`
	Images    dbtypes.StringList `gorm:"column:images;type:jsonb"`

	PriceCents int64 `gorm:"column:price_cents;not null;default:0"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
