package models

import (
	"time"

	dbtypes "github.com/mirabelleshop/cart-backend/pkg/db/types"
)

// CartLine is one product (optionally one variant) in a cart. Prices are not
// persisted here; they are resolved from the catalog when the cart is read.
type CartLine struct {
	ID        string  `gorm:"column:id;type:uuid;primaryKey"`
	CartID    string  `gorm:"column:cart_id;type:uuid;not null;index:idx_cart_lines_cart_id"`
	ProductID string  `gorm:"column:product_id;type:uuid;not null"`
	VariantID *string `gorm:"column:variant_id;type:uuid"`
	Quantity  int     `gorm:"column:quantity;not null"`

	Metadata dbtypes.JSONMap `gorm:"column:metadata;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
