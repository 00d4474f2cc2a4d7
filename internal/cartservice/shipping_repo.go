package cartservice

import (
	"context"

	"gorm.io/gorm"

	"github.com/mirabelleshop/cart-backend/pkg/db/models"
)

// ShippingRepo lists shipping methods from the shipping_methods table.
type ShippingRepo struct {
	db *gorm.DB
}

func NewShippingRepo(db *gorm.DB) *ShippingRepo {
	return &ShippingRepo{db: db}
}

// List returns every shipping method, default first.
func (r *ShippingRepo) List(ctx context.Context) ([]models.ShippingMethod, error) {
	var methods []models.ShippingMethod
	if err := r.db.WithContext(ctx).
		Order("is_default DESC, name ASC").
		Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

// FindByOptionID loads one shipping method by its option id.
func (r *ShippingRepo) FindByOptionID(ctx context.Context, shippingOptionID string) (*models.ShippingMethod, error) {
	var method models.ShippingMethod
	if err := r.db.WithContext(ctx).
		Where("shipping_option_id = ?", shippingOptionID).
		First(&method).Error; err != nil {
		return nil, err
	}
	return &method, nil
}
