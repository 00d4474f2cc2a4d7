package cart

import (
	"github.com/mirabelleshop/cart-backend/internal/cartservice"
	"github.com/mirabelleshop/cart-backend/pkg/types"
)

// addLineRequest captures the intent payload for adding a line. The cart id
// is accepted for wire compatibility but the session always wins.
type addLineRequest struct {
	CartID    string         `json:"cart_id,omitempty"`
	ProductID string         `json:"product_id" validate:"required"`
	VariantID *string        `json:"variant_id,omitempty"`
	Quantity  int            `json:"quantity" validate:"required,min=1"`
	Metadata  types.Metadata `json:"metadata,omitempty"`
}

type updateLineRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type promotionsRequest struct {
	Codes []string `json:"codes" validate:"required,min=1,dive,required"`
}

type rewardsRequest struct {
	Points int64 `json:"points" validate:"min=0"`
}

type shippingRequest struct {
	CartID           string `json:"cart_id,omitempty"`
	ShippingOptionID string `json:"shipping_option_id" validate:"required"`
}

func toAddLineInput(payload addLineRequest) cartservice.AddLineInput {
	return cartservice.AddLineInput{
		ProductID: payload.ProductID,
		VariantID: payload.VariantID,
		Quantity:  payload.Quantity,
		Metadata:  payload.Metadata,
	}
}
