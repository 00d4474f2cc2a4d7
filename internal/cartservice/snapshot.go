package cartservice

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mirabelleshop/cart-backend/internal/lineitem"
	"github.com/mirabelleshop/cart-backend/internal/pricing"
	"github.com/mirabelleshop/cart-backend/pkg/db/models"
	pkgerrors "github.com/mirabelleshop/cart-backend/pkg/errors"
	"github.com/mirabelleshop/cart-backend/pkg/types"
)

// buildSnapshot projects the persisted cart into the wire snapshot: lines are
// joined with the catalog, display items mapped, and totals recomputed from
// scratch.
func (s *service) buildSnapshot(ctx context.Context, cart *models.Cart) (*types.CartSnapshot, error) {
	rows, err := s.catalog.RowsForLines(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	clubPct := float64(0)
	if cart.IsClubMember {
		clubPct = cart.ClubDiscountPercentage
		if clubPct == 0 {
			clubPct = s.cfg.ClubDiscountPercentage
		}
	}

	items := lineitem.Map(rows, lineitem.MapOptions{
		ClubDiscountPercentage:  clubPct,
		DefaultGiftWrapFeeCents: s.cfg.GiftWrapFeeCents,
	})

	promotions, err := s.resolvePromotions(ctx, cart.AppliedPromoCodes)
	if err != nil {
		return nil, err
	}
	var activePromo *types.Promotion
	if len(promotions) > 0 {
		activePromo = &promotions[0]
	}

	shippingMethods, defaultMethod, err := s.resolveShipping(ctx, cart.ShippingOptionID)
	if err != nil {
		return nil, err
	}

	totals := pricing.Compute(pricing.Input{
		Items:                  items,
		Promotion:              activePromo,
		ShippingMethods:        shippingMethods,
		AvailableRewardsCents:  cart.AvailableRewardsCents,
		CartMetadata:           pricingMetadata(cart),
		IsClubMember:           cart.IsClubMember,
		ClubDiscountPercentage: clubPct,
		DefaultShippingOption:  defaultMethod,
	})

	snap := &types.CartSnapshot{
		ID:                     cart.ID,
		Items:                  items,
		CurrencyCode:           cart.CurrencyCode,
		CreatedAt:              cart.CreatedAt,
		UpdatedAt:              cart.UpdatedAt,
		Promotions:             promotions,
		Metadata:               types.Metadata(cart.Metadata),
		IsClubMember:           cart.IsClubMember,
		ClubDiscountPercentage: clubPct,
		AvailableRewardsCents:  cart.AvailableRewardsCents,
	}
	pricing.ApplyToSnapshot(snap, totals)
	return snap, nil
}

// resolvePromotions maps the cart's applied codes to promotions. Codes that
// vanished from the catalog since they were applied are dropped, not failed.
func (s *service) resolvePromotions(ctx context.Context, codes []string) ([]types.Promotion, error) {
	var out []types.Promotion
	for _, code := range codes {
		promo, err := s.promos.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve promotion")
		}
		out = append(out, types.Promotion{
			ID:                  promo.ID,
			Code:                promo.Code,
			Type:                promo.Type,
			Value:               promo.Value,
			MinOrderAmountCents: promo.MinOrderAmountCents,
			IsActive:            promo.IsActive,
			StartsAt:            promo.StartsAt,
			EndsAt:              promo.EndsAt,
		})
	}
	return out, nil
}

// resolveShipping returns the methods passed to the calculator. When the cart
// has chosen an option only that method is passed; otherwise the calculator
// falls back to the default.
func (s *service) resolveShipping(ctx context.Context, chosenOptionID *string) ([]types.ShippingMethod, *types.ShippingMethod, error) {
	methods, err := s.shipping.List(ctx)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipping methods")
	}

	var chosen []types.ShippingMethod
	var fallback *types.ShippingMethod
	for _, m := range methods {
		method := types.ShippingMethod{
			ShippingOptionID:          m.ShippingOptionID,
			Name:                      m.Name,
			AmountCents:               m.AmountCents,
			MinOrderFreeShippingCents: m.MinOrderFreeShippingCents,
		}
		if chosenOptionID != nil && m.ShippingOptionID == *chosenOptionID {
			chosen = append(chosen, method)
		}
		if fallback == nil && (m.IsDefault || m.ShippingOptionID == s.cfg.DefaultShippingOption) {
			f := method
			fallback = &f
		}
	}
	return chosen, fallback, nil
}

// pricingMetadata merges the cart's metadata with the requested reward spend
// so the calculator can clamp it.
func pricingMetadata(cart *models.Cart) types.Metadata {
	meta := types.Metadata(cart.Metadata).Clone()
	if meta == nil {
		meta = types.Metadata{}
	}
	if cart.AppliedRewardsCents > 0 {
		meta[types.MetadataKeyRewardsToApply] = cart.AppliedRewardsCents
	}
	return meta
}
