package cartservice

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mirabelleshop/cart-backend/pkg/db/models"
)

// Repository exposes persistence operations for carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a cart with its lines.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindActiveBySession loads the latest open cart for the session.
func (r *Repository) FindActiveBySession(ctx context.Context, sessionID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("session_id = ? AND completed_at IS NULL", sessionID).
		Order("created_at DESC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts a new cart, assigning an id when absent.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.ID == "" {
		cart.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// Update saves the provided cart.
func (r *Repository) Update(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Save(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// FindLine loads one cart line by id.
func (r *Repository) FindLine(ctx context.Context, lineID string) (*models.CartLine, error) {
	var line models.CartLine
	if err := r.db.WithContext(ctx).Where("id = ?", lineID).First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// AddLine inserts a new cart line, assigning an id when absent.
func (r *Repository) AddLine(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateLineQuantity rewrites the quantity of one line.
func (r *Repository) UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Update("quantity", quantity).Error
}

// DeleteLine removes one cart line.
func (r *Repository) DeleteLine(ctx context.Context, lineID string) error {
	return r.db.WithContext(ctx).Where("id = ?", lineID).Delete(&models.CartLine{}).Error
}

// DeleteCart removes the cart and, via the FK cascade, its lines.
func (r *Repository) DeleteCart(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("cart_id = ?", id).Delete(&models.CartLine{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Cart{}).Error
}
