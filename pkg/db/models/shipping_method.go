package models

import "time"

// ShippingMethod is one selectable shipping option with an optional
// free-shipping subtotal threshold.
type ShippingMethod struct {
	ID               string `gorm:"column:id;type:uuid;primaryKey"`
	ShippingOptionID string `gorm:"column:shipping_option_id;not null;uniqueIndex:idx_shipping_methods_option"`
	Name             string `gorm:"column:name;not null"`

	AmountCents               int64  `gorm:"column:amount_cents;not null;default:0"`
	MinOrderFreeShippingCents *int64 `gorm:"column:min_order_free_shipping_cents"`

	IsDefault bool `gorm:"column:is_default;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
