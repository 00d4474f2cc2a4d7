package cartservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mirabelleshop/cart-backend/internal/lineitem"
	"github.com/mirabelleshop/cart-backend/pkg/config"
	"github.com/mirabelleshop/cart-backend/pkg/db/models"
	dbtypes "github.com/mirabelleshop/cart-backend/pkg/db/types"
	pkgerrors "github.com/mirabelleshop/cart-backend/pkg/errors"
	"github.com/mirabelleshop/cart-backend/pkg/redis"
	"github.com/mirabelleshop/cart-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type catalogLoader interface {
	RowsForLines(ctx context.Context, lines []models.CartLine) ([]lineitem.RawRow, error)
	ValidateSellable(ctx context.Context, productID string, variantID *string) error
}

type sessionBinder interface {
	BindCartToSession(ctx context.Context, sessionID, cartID string) error
	CartIDForSession(ctx context.Context, sessionID string) (string, error)
	UnbindSession(ctx context.Context, sessionID string) error
}

// AddLineInput is the payload for adding a product to a session's cart.
type AddLineInput struct {
	ProductID string
	VariantID *string
	Quantity  int
	Metadata  types.Metadata
}

// Service exposes the authoritative cart operations. Every mutation returns
// the cart rebuilt from persisted state with totals recomputed, so clients
// can adopt the response wholesale.
type Service interface {
	GetCart(ctx context.Context, sessionID string) (*types.CartSnapshot, error)
	AddLine(ctx context.Context, sessionID string, input AddLineInput) (*types.CartSnapshot, error)
	RemoveLine(ctx context.Context, sessionID, lineID string) (*types.CartSnapshot, error)
	UpdateLineQuantity(ctx context.Context, sessionID, lineID string, quantity int) (*types.CartSnapshot, error)
	ApplyPromotionCodes(ctx context.Context, sessionID string, codes []string) error
	ApplyRewardPoints(ctx context.Context, sessionID string, points int64) error
	SetShippingMethod(ctx context.Context, sessionID, shippingOptionID string) error
	ClearCart(ctx context.Context, sessionID string) error
}

type service struct {
	repo     CartRepository
	promos   PromotionRepository
	shipping ShippingMethodRepository
	catalog  catalogLoader
	tx       txRunner
	binder   sessionBinder
	cfg      config.CartConfig
}

// NewService builds a cart service backed by the provided stack.
func NewService(
	repo CartRepository,
	promos PromotionRepository,
	shipping ShippingMethodRepository,
	catalog catalogLoader,
	tx txRunner,
	binder sessionBinder,
	cfg config.CartConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if shipping == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if binder == nil {
		return nil, fmt.Errorf("session binder required")
	}
	return &service{
		repo:     repo,
		promos:   promos,
		shipping: shipping,
		catalog:  catalog,
		tx:       tx,
		binder:   binder,
		cfg:      cfg,
	}, nil
}

// GetCart returns the session's cart, or nil when the session has none.
func (s *service) GetCart(ctx context.Context, sessionID string) (*types.CartSnapshot, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, nil
	}
	return s.buildSnapshot(ctx, cart)
}

// AddLine adds the product to the session's cart, creating the cart when the
// session has none. A line with the same variant and deep-equal metadata is
// merged by incrementing its quantity rather than duplicated.
func (s *service) AddLine(ctx context.Context, sessionID string, input AddLineInput) (*types.CartSnapshot, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	if input.ProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if err := s.catalog.ValidateSellable(ctx, input.ProductID, input.VariantID); err != nil {
		return nil, err
	}

	var cart *models.Cart
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		existing, err := s.loadCartWith(ctx, txRepo, sessionID)
		if err != nil {
			return err
		}
		if existing == nil {
			existing, err = txRepo.Create(ctx, &models.Cart{
				SessionID:    sessionID,
				CurrencyCode: s.cfg.CurrencyCode,
			})
			if err != nil {
				return err
			}
		}

		if target := findMergeTarget(existing.Items, input.VariantID, input.Metadata); target != nil {
			if err := txRepo.UpdateLineQuantity(ctx, target.ID, target.Quantity+input.Quantity); err != nil {
				return err
			}
		} else {
			if _, err := txRepo.AddLine(ctx, &models.CartLine{
				CartID:    existing.ID,
				ProductID: input.ProductID,
				VariantID: input.VariantID,
				Quantity:  input.Quantity,
				Metadata:  dbtypes.JSONMap(input.Metadata),
			}); err != nil {
				return err
			}
		}

		cart, err = txRepo.FindByID(ctx, existing.ID)
		return err
	}); err != nil {
		return nil, wrapPersistence(err)
	}

	if err := s.binder.BindCartToSession(ctx, sessionID, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind cart to session")
	}
	return s.buildSnapshot(ctx, cart)
}

// RemoveLine deletes the line from the session's cart.
func (s *service) RemoveLine(ctx context.Context, sessionID, lineID string) (*types.CartSnapshot, error) {
	cart, _, err := s.requireLine(ctx, sessionID, lineID)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.DeleteLine(ctx, lineID); err != nil {
			return err
		}
		cart, err = txRepo.FindByID(ctx, cart.ID)
		return err
	}); err != nil {
		return nil, wrapPersistence(err)
	}
	return s.buildSnapshot(ctx, cart)
}

// UpdateLineQuantity rewrites the line's quantity.
func (s *service) UpdateLineQuantity(ctx context.Context, sessionID, lineID string, quantity int) (*types.CartSnapshot, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	cart, _, err := s.requireLine(ctx, sessionID, lineID)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.UpdateLineQuantity(ctx, lineID, quantity); err != nil {
			return err
		}
		cart, err = txRepo.FindByID(ctx, cart.ID)
		return err
	}); err != nil {
		return nil, wrapPersistence(err)
	}
	return s.buildSnapshot(ctx, cart)
}

// ApplyPromotionCodes replaces the cart's applied codes after validating each
// one. Invalid codes are reported together, one error per code.
func (s *service) ApplyPromotionCodes(ctx context.Context, sessionID string, codes []string) error {
	cart, err := s.requireCart(ctx, sessionID)
	if err != nil {
		return err
	}

	var invalid error
	for _, code := range codes {
		if err := s.validatePromotionCode(ctx, code); err != nil {
			invalid = multierr.Append(invalid, err)
		}
	}
	if invalid != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, invalid, "promotion codes rejected")
	}

	cart.AppliedPromoCodes = dbtypes.StringList(codes)
	if _, err := s.repo.Update(ctx, cart); err != nil {
		return wrapPersistence(err)
	}
	return nil
}

// ApplyRewardPoints records the requested reward spend. The amount actually
// deducted is clamped during totals computation, never here.
func (s *service) ApplyRewardPoints(ctx context.Context, sessionID string, points int64) error {
	if points < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reward points cannot be negative")
	}
	cart, err := s.requireCart(ctx, sessionID)
	if err != nil {
		return err
	}
	if points > cart.AvailableRewardsCents {
		return pkgerrors.New(pkgerrors.CodeValidation, "reward points exceed available balance")
	}

	cart.AppliedRewardsCents = points
	if _, err := s.repo.Update(ctx, cart); err != nil {
		return wrapPersistence(err)
	}
	return nil
}

// SetShippingMethod selects the shipping option used for totals.
func (s *service) SetShippingMethod(ctx context.Context, sessionID, shippingOptionID string) error {
	if strings.TrimSpace(shippingOptionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping option id is required")
	}
	cart, err := s.requireCart(ctx, sessionID)
	if err != nil {
		return err
	}

	method, err := s.shipping.FindByOptionID(ctx, shippingOptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shipping option not found")
		}
		return wrapPersistence(err)
	}

	cart.ShippingOptionID = &method.ShippingOptionID
	if _, err := s.repo.Update(ctx, cart); err != nil {
		return wrapPersistence(err)
	}
	return nil
}

// ClearCart deletes the session's cart and drops the session binding. It is
// idempotent: clearing a session with no cart succeeds.
func (s *service) ClearCart(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return err
	}
	if cart != nil {
		if err := s.repo.DeleteCart(ctx, cart.ID); err != nil {
			return wrapPersistence(err)
		}
	}
	if err := s.binder.UnbindSession(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unbind session")
	}
	return nil
}

func (s *service) validatePromotionCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("empty promotion code")
	}
	promo, err := s.promos.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("unknown promotion code %q", code)
		}
		return fmt.Errorf("resolve promotion code %q: %w", code, err)
	}
	if !promo.IsActive {
		return fmt.Errorf("promotion code %q is inactive", code)
	}
	if !promo.Type.IsValid() {
		return fmt.Errorf("promotion code %q has an unknown type", code)
	}
	return nil
}

// requireCart loads the session's cart or fails with not-found.
func (s *service) requireCart(ctx context.Context, sessionID string) (*models.Cart, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session has no cart")
	}
	return cart, nil
}

// requireLine loads the session's cart and checks the line belongs to it.
func (s *service) requireLine(ctx context.Context, sessionID, lineID string) (*models.Cart, *models.CartLine, error) {
	if lineID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
	}
	cart, err := s.requireCart(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	for i := range cart.Items {
		if cart.Items[i].ID == lineID {
			return cart, &cart.Items[i], nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
}

// loadCart resolves the session's cart via the redis binding first, falling
// back to a session-id lookup. Returns nil when the session has no cart.
func (s *service) loadCart(ctx context.Context, sessionID string) (*models.Cart, error) {
	return s.loadCartWith(ctx, s.repo, sessionID)
}

func (s *service) loadCartWith(ctx context.Context, repo CartRepository, sessionID string) (*models.Cart, error) {
	cartID, err := s.binder.CartIDForSession(ctx, sessionID)
	switch {
	case err == nil:
		cart, err := repo.FindByID(ctx, cartID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wrapPersistence(err)
		}
		// Stale binding; fall through to the session lookup.
	case !errors.Is(err, redis.ErrNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve session binding")
	}

	cart, err := repo.FindActiveBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapPersistence(err)
	}
	return cart, nil
}

// findMergeTarget returns the line with the same variant and deep-equal
// metadata, or nil.
func findMergeTarget(lines []models.CartLine, variantID *string, metadata types.Metadata) *models.CartLine {
	for i := range lines {
		if !variantIDEqual(lines[i].VariantID, variantID) {
			continue
		}
		if types.Metadata(lines[i].Metadata).Equal(metadata) {
			return &lines[i]
		}
	}
	return nil
}

func variantIDEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return nil
}

func wrapPersistence(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
}
