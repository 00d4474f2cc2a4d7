package cartsync

import (
	"context"

	"github.com/mirabelleshop/cart-backend/pkg/types"
)

// AddLineInput carries everything needed to add one sellable line: the
// identifiers the server persists plus the display/pricing fields the store
// needs to synthesize the speculative line before confirmation.
type AddLineInput struct {
	ProductID string
	VariantID *string
	Quantity  int
	Metadata  types.Metadata

	UnitPriceCents         int64
	OriginalUnitPriceCents int64

	Title         string
	Thumbnail     string
	ProductTitle  string
	ProductHandle string
}

// Gateway is the remote cart-service collaborator. Every mutation returns
// the authoritative snapshot the store adopts wholesale; FetchCart returns
// nil when no server cart exists yet.
type Gateway interface {
	AddLine(ctx context.Context, cartID string, input AddLineInput) (*types.CartSnapshot, error)
	RemoveLine(ctx context.Context, lineID string) (*types.CartSnapshot, error)
	UpdateLineQuantity(ctx context.Context, lineID string, quantity int) (*types.CartSnapshot, error)
	FetchCart(ctx context.Context) (*types.CartSnapshot, error)
	ApplyPromotionCodes(ctx context.Context, codes []string) error
	ApplyRewardPoints(ctx context.Context, points int64) error
	SetShippingMethod(ctx context.Context, cartID, shippingOptionID string) error
}

// Notifier receives human-readable failure messages for user display.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NotifierFunc adapts functions to the Notifier interface.
type NotifierFunc func(ctx context.Context, message string)

// Notify calls the underlying function.
func (fn NotifierFunc) Notify(ctx context.Context, message string) {
	if fn == nil {
		return
	}
	fn(ctx, message)
}
