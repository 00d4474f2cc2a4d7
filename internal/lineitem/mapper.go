package lineitem

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mirabelleshop/cart-backend/pkg/types"
)

// GiftWrapTitle overrides the product title on synthetic gift-wrap lines.
const GiftWrapTitle = "Gift Wrap"

// ImageRef accepts both bare URL strings and {"url": ...} objects, the two
// shapes catalog rows carry images in.
type ImageRef struct {
	URL string `json:"url"`
}

func (r *ImageRef) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		r.URL = bare
		return nil
	}
	type alias ImageRef
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("image ref must be a string or an object with url: %w", err)
	}
	r.URL = obj.URL
	return nil
}

// Product is the catalog projection a raw row carries.
type Product struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Handle     string     `json:"handle"`
	Thumbnail  string     `json:"thumbnail"`
	Images     []ImageRef `json:"images"`
	PriceCents int64      `json:"price"`
}

// Variant is the optional variant projection on a raw row.
type Variant struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price"`
}

// RawRow is one persisted cart row with its nested product and optional
// variant, as returned by the store.
type RawRow struct {
	ID       string         `json:"id"`
	Quantity int            `json:"quantity"`
	Metadata types.Metadata `json:"metadata"`
	Product  Product        `json:"product"`
	Variant  *Variant       `json:"variant"`
}

// MapOptions tune the projection.
type MapOptions struct {
	ClubDiscountPercentage  float64
	DefaultGiftWrapFeeCents int64
}

// Map projects raw persisted rows into display-ready line items. It is pure:
// the same input always yields the same output.
func Map(rows []RawRow, opts MapOptions) []types.CartLineItem {
	items := make([]types.CartLineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, MapRow(row, opts))
	}
	return items
}

// MapRow projects a single raw row.
func MapRow(row RawRow, opts MapOptions) types.CartLineItem {
	item := types.CartLineItem{
		ID:            row.ID,
		ProductID:     row.Product.ID,
		Quantity:      row.Quantity,
		Metadata:      row.Metadata,
		Title:         row.Product.Title,
		Thumbnail:     resolveThumbnail(row.Product),
		ProductTitle:  row.Product.Title,
		ProductHandle: row.Product.Handle,
	}
	if row.Variant != nil {
		variantID := row.Variant.ID
		item.VariantID = &variantID
		if row.Variant.Title != "" {
			item.Title = row.Variant.Title
		}
	}

	originalPrice := originalUnitPrice(row)

	if row.Metadata.IsGiftWrapLine() {
		// Flat service charge: club pricing never applies and the fee wins
		// over any product price.
		fee := row.Metadata.GiftWrapFeeCents(opts.DefaultGiftWrapFeeCents)
		item.Title = GiftWrapTitle
		item.UnitPriceCents = fee
		item.OriginalUnitPriceCents = fee
	} else {
		item.UnitPriceCents = clubDiscounted(originalPrice, opts.ClubDiscountPercentage)
		item.OriginalUnitPriceCents = originalPrice
		item.HasClubDiscount = opts.ClubDiscountPercentage > 0
	}

	qty := int64(item.Quantity)
	item.TotalCents = item.UnitPriceCents * qty
	item.OriginalTotalCents = item.OriginalUnitPriceCents * qty
	item.SubtotalCents = item.TotalCents
	return item
}

func originalUnitPrice(row RawRow) int64 {
	if row.Variant != nil && row.Variant.PriceCents > 0 {
		return row.Variant.PriceCents
	}
	if row.Product.PriceCents > 0 {
		return row.Product.PriceCents
	}
	return 0
}

// clubDiscounted rounds half-up to whole cents.
func clubDiscounted(priceCents int64, pct float64) int64 {
	if pct <= 0 {
		return priceCents
	}
	return decimal.NewFromInt(priceCents).
		Mul(decimal.NewFromInt(100).Sub(decimal.NewFromFloat(pct))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// resolveThumbnail prefers the direct image field, then the first entry of
// the image collection.
func resolveThumbnail(p Product) string {
	if p.Thumbnail != "" {
		return p.Thumbnail
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}
