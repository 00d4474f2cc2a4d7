package cartsync

import (
	"fmt"
	"time"

	"github.com/mirabelleshop/cart-backend/pkg/types"
)

// newTempCart creates the client-only cart used before the server has seen
// any mutation. Its id is never sent to the server.
func newTempCart(currencyCode string) *types.CartSnapshot {
	now := time.Now().UTC()
	return &types.CartSnapshot{
		ID:           types.TempCartID,
		Items:        []types.CartLineItem{},
		CurrencyCode: currencyCode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// tempLineID synthesizes the placeholder id a speculative line carries until
// the server snapshot replaces it.
func tempLineID(variantID *string, metadata types.Metadata) string {
	variant := "novariant"
	if variantID != nil && *variantID != "" {
		variant = *variantID
	}
	kind := "item"
	if metadata.IsGiftWrapLine() {
		kind = "gift-wrap"
	}
	return fmt.Sprintf("temp-%s-%s-%d", variant, kind, time.Now().UnixNano())
}

// isTempLineID reports whether the id was synthesized client-side.
func isTempLineID(lineID string) bool {
	return len(lineID) > 5 && lineID[:5] == "temp-"
}

// recalcLight refreshes subtotal and total after a speculative line change.
// Shipping, discount, and rewards figures are left untouched; the next
// authoritative snapshot carries the full recomputation.
func recalcLight(s *types.CartSnapshot) {
	var subtotal int64
	for i := range s.Items {
		subtotal += s.Items[i].TotalCents
	}
	s.ItemSubtotalCents = subtotal
	s.SubtotalCents = subtotal
	total := subtotal + s.TaxTotalCents + s.ShippingTotalCents - s.DiscountTotalCents - s.RewardsDiscountCents
	if total < 0 {
		total = 0
	}
	s.TotalCents = total
	s.UpdatedAt = time.Now().UTC()
}
