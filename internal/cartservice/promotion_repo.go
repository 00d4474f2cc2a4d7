package cartservice

import (
	"context"

	"gorm.io/gorm"

	"github.com/mirabelleshop/cart-backend/pkg/db/models"
)

// PromotionRepo resolves promotion codes from the promotions table.
type PromotionRepo struct {
	db *gorm.DB
}

func NewPromotionRepo(db *gorm.DB) *PromotionRepo {
	return &PromotionRepo{db: db}
}

// FindByCode loads one promotion by its code.
func (r *PromotionRepo) FindByCode(ctx context.Context, code string) (*models.Promotion, error) {
	var promo models.Promotion
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&promo).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}
