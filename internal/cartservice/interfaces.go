package cartservice

import (
	"context"

	"gorm.io/gorm"

	"github.com/mirabelleshop/cart-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByID(ctx context.Context, id string) (*models.Cart, error)
	FindActiveBySession(ctx context.Context, sessionID string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	Update(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindLine(ctx context.Context, lineID string) (*models.CartLine, error)
	AddLine(ctx context.Context, line *models.CartLine) (*models.CartLine, error)
	UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error
	DeleteLine(ctx context.Context, lineID string) error
	DeleteCart(ctx context.Context, id string) error
}

// PromotionRepository resolves promotion codes.
type PromotionRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Promotion, error)
}

// ShippingMethodRepository lists the selectable shipping options.
type ShippingMethodRepository interface {
	List(ctx context.Context) ([]models.ShippingMethod, error)
	FindByOptionID(ctx context.Context, shippingOptionID string) (*models.ShippingMethod, error)
}
