package types

import (
	"time"

	"github.com/mirabelleshop/cart-backend/pkg/enums"
)

// TempCartID marks a client-only cart that has never touched the server.
const TempCartID = "temp-cart"

// CartSnapshot is the complete cart state visible to UI consumers. It is
// replaced wholesale on every server confirmation; the monetary fields are
// derived and never hand-edited.
type CartSnapshot struct {
	ID           string         `json:"id"`
	Items        []CartLineItem `json:"items"`
	CurrencyCode string         `json:"currency_code"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	ItemSubtotalCents    int64 `json:"item_subtotal"`
	SubtotalCents        int64 `json:"subtotal"`
	ShippingTotalCents   int64 `json:"shipping_total"`
	TaxTotalCents        int64 `json:"tax_total"`
	DiscountTotalCents   int64 `json:"discount_total"`
	RewardsDiscountCents int64 `json:"rewards_discount"`
	TotalCents           int64 `json:"total"`

	Promotions []Promotion `json:"promotions"`
	Metadata   Metadata    `json:"metadata,omitempty"`

	IsClubMember           bool    `json:"is_club_member"`
	ClubDiscountPercentage float64 `json:"club_discount_percentage"`
	AvailableRewardsCents  int64   `json:"available_rewards"`
}

// IsTempCart reports whether the snapshot exists only client-side.
func (s *CartSnapshot) IsTempCart() bool {
	return s != nil && s.ID == TempCartID
}

// Clone returns a copy with an independent items slice. Line items are value
// copies; metadata bags stay shared because snapshots are copy-on-write and
// never mutated in place.
func (s *CartSnapshot) Clone() *CartSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Items = make([]CartLineItem, len(s.Items))
	copy(out.Items, s.Items)
	out.Promotions = make([]Promotion, len(s.Promotions))
	copy(out.Promotions, s.Promotions)
	return &out
}

// FindLine returns the index of the line with the given id, or -1.
func (s *CartSnapshot) FindLine(lineID string) int {
	if s == nil {
		return -1
	}
	for i := range s.Items {
		if s.Items[i].ID == lineID {
			return i
		}
	}
	return -1
}

// FindMergeTarget returns the index of the line considered the same sellable
// line: matching variant id and deep-equal metadata. Returns -1 when no line
// matches.
func (s *CartSnapshot) FindMergeTarget(variantID *string, metadata Metadata) int {
	if s == nil {
		return -1
	}
	for i := range s.Items {
		if !variantIDEqual(s.Items[i].VariantID, variantID) {
			continue
		}
		if s.Items[i].Metadata.Equal(metadata) {
			return i
		}
	}
	return -1
}

func variantIDEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CartLineItem is one sellable line. Display fields are derived, not
// authoritative.
type CartLineItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id"`
	Quantity  int     `json:"quantity"`

	UnitPriceCents         int64 `json:"unit_price"`
	OriginalUnitPriceCents int64 `json:"original_unit_price"`
	TotalCents             int64 `json:"total"`
	OriginalTotalCents     int64 `json:"original_total"`
	SubtotalCents          int64 `json:"subtotal"`

	Metadata Metadata `json:"metadata,omitempty"`

	Title           string `json:"title,omitempty"`
	Thumbnail       string `json:"thumbnail,omitempty"`
	ProductTitle    string `json:"product_title,omitempty"`
	ProductHandle   string `json:"product_handle,omitempty"`
	HasClubDiscount bool   `json:"has_club_discount,omitempty"`
}

// Promotion describes one applied or applicable promotion code.
type Promotion struct {
	ID                  string              `json:"id"`
	Code                string              `json:"code"`
	Type                enums.PromotionType `json:"type"`
	Value               int64               `json:"value"`
	MinOrderAmountCents int64               `json:"min_order_amount"`
	IsActive            bool                `json:"is_active"`
	StartsAt            *time.Time          `json:"starts_at"`
	EndsAt              *time.Time          `json:"ends_at"`
}

// InWindow reports whether the promotion window contains the instant.
// Absent bounds are unbounded; bounds are inclusive.
func (p Promotion) InWindow(now time.Time) bool {
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return false
	}
	return true
}

// ShippingMethod is one selectable shipping option.
type ShippingMethod struct {
	ShippingOptionID          string `json:"shipping_option_id"`
	Name                      string `json:"name"`
	AmountCents               int64  `json:"amount"`
	MinOrderFreeShippingCents *int64 `json:"min_order_free_shipping"`
}
