package models

import (
	"time"

	"github.com/mirabelleshop/cart-backend/pkg/enums"
)

// Promotion is one redeemable promotion code. Value holds a percentage for
// percentage promotions and cents for fixed ones; free-shipping promotions
// ignore it.
type Promotion struct {
	ID   string              `gorm:"column:id;type:uuid;primaryKey"`
	Code string              `gorm:"column:code;not null;uniqueIndex:idx_promotions_code"`
	Type enums.PromotionType `gorm:"column:type;type:text;not null"`

	Value               int64 `gorm:"column:value;not null;default:0"`
	MinOrderAmountCents int64 `gorm:"column:min_order_amount_cents;not null;default:0"`

	IsActive bool       `gorm:"column:is_active;not null;default:true"`
	StartsAt *time.Time `gorm:"column:starts_at"`
	EndsAt   *time.Time `gorm:"column:ends_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
