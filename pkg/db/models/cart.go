package models

import (
	"time"

	dbtypes "github.com/mirabelleshop/cart-backend/pkg/db/types"
)

// Cart is the authoritative server-side cart for one session.
type Cart struct {
	ID        string `gorm:"column:id;type:uuid;primaryKey"`
	SessionID string `gorm:"column:session_id;not null;index:idx_carts_session_id"`

	CurrencyCode           string  `gorm:"column:currency_code;not null;default:'usd'"`
	IsClubMember           bool    `gorm:"column:is_club_member;not null;default:false"`
	ClubDiscountPercentage float64 `gorm:"column:club_discount_percentage;not null;default:0"`

	AvailableRewardsCents int64 `gorm:"column:available_rewards_cents;not null;default:0"`
	AppliedRewardsCents   int64 `gorm:"column:applied_rewards_cents;not null;default:0"`

	AppliedPromoCodes dbtypes.StringList `gorm:"column:applied_promo_codes;type:jsonb"`
	ShippingOptionID  *string            `gorm:"column:shipping_option_id"`

	Metadata dbtypes.JSONMap `gorm:"column:metadata;type:jsonb"`

	Items []CartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`

	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
