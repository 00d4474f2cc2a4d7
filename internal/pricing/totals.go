package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mirabelleshop/cart-backend/pkg/enums"
	"github.com/mirabelleshop/cart-backend/pkg/types"
)

// Input carries everything the totals calculation needs. Compute never
// mutates it and performs no I/O.
type Input struct {
	Items                  []types.CartLineItem
	Promotion              *types.Promotion
	ShippingMethods        []types.ShippingMethod
	AvailableRewardsCents  int64
	CartMetadata           types.Metadata
	IsClubMember           bool
	ClubDiscountPercentage float64
	DefaultShippingOption  *types.ShippingMethod

	// Now pins promotion-window evaluation for deterministic tests.
	// Zero means time.Now().
	Now time.Time
}

// Totals is the calculator result. TotalCents is never negative and
// DiscountTotalCents never exceeds the item subtotal.
type Totals struct {
	ItemSubtotalCents     int64
	OriginalSubtotalCents int64
	ClubSavingsCents      int64
	DiscountTotalCents    int64
	ShippingTotalCents    int64
	RewardsDiscountCents  int64
	TaxTotalCents         int64
	TotalCents            int64
	FreeShipping          bool
}

// Compute derives cart totals in a fixed order: item subtotal, promotion
// discount, shipping, rewards clamp, tax, grand total. Rewards are clamped
// last so they can never double-spend savings already granted by the
// promotion or free shipping.
func Compute(in Input) Totals {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	var t Totals
	for _, item := range in.Items {
		t.ItemSubtotalCents += item.TotalCents
		original := item.OriginalTotalCents
		if original == 0 {
			original = item.TotalCents
		}
		t.OriginalSubtotalCents += original
	}
	// Informational only; the line items already carry discounted prices.
	t.ClubSavingsCents = t.OriginalSubtotalCents - t.ItemSubtotalCents

	t.DiscountTotalCents, t.FreeShipping = evaluatePromotion(in.Promotion, t.ItemSubtotalCents, now)
	t.ShippingTotalCents = evaluateShipping(in, t.ItemSubtotalCents, t.FreeShipping)
	t.RewardsDiscountCents = clampRewards(in, t)
	t.TaxTotalCents = 0

	total := t.ItemSubtotalCents + t.TaxTotalCents + t.ShippingTotalCents - t.DiscountTotalCents - t.RewardsDiscountCents
	if total < 0 {
		total = 0
	}
	t.TotalCents = total
	return t
}

// evaluatePromotion returns the discount and whether shipping is free. Any
// unmet condition yields a zero discount without an error.
func evaluatePromotion(promo *types.Promotion, itemSubtotalCents int64, now time.Time) (int64, bool) {
	if promo == nil || !promo.IsActive {
		return 0, false
	}
	if !promo.InWindow(now) {
		return 0, false
	}
	if itemSubtotalCents < promo.MinOrderAmountCents {
		return 0, false
	}

	switch promo.Type {
	case enums.PromotionTypePercentage:
		discount := decimal.NewFromInt(itemSubtotalCents).
			Mul(decimal.NewFromInt(promo.Value)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
		if discount > itemSubtotalCents {
			discount = itemSubtotalCents
		}
		return discount, false
	case enums.PromotionTypeFixed:
		if promo.Value > itemSubtotalCents {
			return itemSubtotalCents, false
		}
		return promo.Value, false
	case enums.PromotionTypeFreeShipping:
		return 0, true
	}
	return 0, false
}

// evaluateShipping picks the first configured method, falling back to the
// default option; no method means zero shipping.
func evaluateShipping(in Input, itemSubtotalCents int64, freeShipping bool) int64 {
	var method *types.ShippingMethod
	if len(in.ShippingMethods) > 0 {
		method = &in.ShippingMethods[0]
	} else if in.DefaultShippingOption != nil {
		method = in.DefaultShippingOption
	}
	if method == nil {
		return 0
	}
	if freeShipping {
		return 0
	}
	if method.MinOrderFreeShippingCents != nil && itemSubtotalCents >= *method.MinOrderFreeShippingCents {
		return 0
	}
	return method.AmountCents
}

// clampRewards bounds the requested reward spend by the member balance and
// the amount still payable after the product discount.
func clampRewards(in Input, t Totals) int64 {
	requested := in.CartMetadata.RewardsToApplyCents()
	if requested <= 0 {
		return 0
	}
	payable := t.ItemSubtotalCents + t.ShippingTotalCents - t.DiscountTotalCents
	if payable < 0 {
		payable = 0
	}
	rewards := requested
	if in.AvailableRewardsCents < rewards {
		rewards = in.AvailableRewardsCents
	}
	if payable < rewards {
		rewards = payable
	}
	if rewards < 0 {
		rewards = 0
	}
	return rewards
}

// ApplyToSnapshot writes the computed totals onto a snapshot's derived
// monetary fields.
func ApplyToSnapshot(s *types.CartSnapshot, t Totals) {
	if s == nil {
		return
	}
	s.ItemSubtotalCents = t.ItemSubtotalCents
	s.SubtotalCents = t.ItemSubtotalCents
	s.ShippingTotalCents = t.ShippingTotalCents
	s.TaxTotalCents = t.TaxTotalCents
	s.DiscountTotalCents = t.DiscountTotalCents
	s.RewardsDiscountCents = t.RewardsDiscountCents
	s.TotalCents = t.TotalCents
}
