package cartservice

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mirabelleshop/cart-backend/internal/catalog"
	"github.com/mirabelleshop/cart-backend/internal/lineitem"
	"github.com/mirabelleshop/cart-backend/pkg/config"
	"github.com/mirabelleshop/cart-backend/pkg/db/models"
	"github.com/mirabelleshop/cart-backend/pkg/types"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.ProductVariant{},
		&models.Cart{},
		&models.CartLine{},
		&models.Promotion{},
		&models.ShippingMethod{},
	))
	return db
}

type fixture struct {
	svc        Service
	repo       *Repository
	binder     *stubBinder
	productID  string
	variantID  string
	giftWrapID string
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupSQLite(t)

	f := &fixture{
		repo:       NewRepository(db),
		binder:     newStubBinder(),
		productID:  uuid.NewString(),
		variantID:  uuid.NewString(),
		giftWrapID: uuid.NewString(),
	}

	require.NoError(t, db.Create(&models.Product{
		ID:         f.productID,
		Title:      "Ceramic Tea Set",
		Handle:     "ceramic-tea-set",
		Thumbnail:  "https://cdn.example.com/tea-set.jpg",
		PriceCents: 10000,
	}).Error)
	require.NoError(t, db.Create(&models.ProductVariant{
		ID:         f.variantID,
		ProductID:  f.productID,
		Title:      "Travel Size",
		PriceCents: 5000,
	}).Error)
	require.NoError(t, db.Create(&models.Product{
		ID:     f.giftWrapID,
		Title:  "Wrapping Service",
		Handle: "wrapping-service",
	}).Error)
	require.NoError(t, db.Create(&models.Promotion{
		ID:                  uuid.NewString(),
		Code:                "SAVE10",
		Type:                "percentage",
		Value:               10,
		MinOrderAmountCents: 10000,
		IsActive:            true,
	}).Error)
	require.NoError(t, db.Create(&models.ShippingMethod{
		ID:                        uuid.NewString(),
		ShippingOptionID:          "standard",
		Name:                      "Standard",
		AmountCents:               500,
		MinOrderFreeShippingCents: int64Ptr(20000),
		IsDefault:                 true,
	}).Error)
	require.NoError(t, db.Create(&models.ShippingMethod{
		ID:               uuid.NewString(),
		ShippingOptionID: "express",
		Name:             "Express",
		AmountCents:      1500,
	}).Error)

	svc, err := NewService(
		f.repo,
		NewPromotionRepo(db),
		NewShippingRepo(db),
		catalog.NewRepository(db),
		gormTxRunner{db: db},
		f.binder,
		config.CartConfig{CurrencyCode: "usd", GiftWrapFeeCents: 500},
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestServiceLifecycleAgainstSQLite(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	const session = "sess-e2e"

	// First add creates the cart, binds the session and prices the line.
	snap, err := f.svc.AddLine(ctx, session, AddLineInput{ProductID: f.productID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, int64(20000), snap.ItemSubtotalCents)
	assert.Equal(t, int64(0), snap.ShippingTotalCents, "free shipping at the threshold")
	assert.Equal(t, int64(20000), snap.TotalCents)
	assert.Equal(t, "Ceramic Tea Set", snap.Items[0].Title)
	assert.Equal(t, snap.ID, f.binder.bindings[session])

	// A second add of the same product merges instead of duplicating.
	snap, err = f.svc.AddLine(ctx, session, AddLineInput{ProductID: f.productID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 3, snap.Items[0].Quantity)
	assert.Equal(t, int64(30000), snap.TotalCents)
	lineID := snap.Items[0].ID

	// A variant of the same product is its own line at the variant price.
	snap, err = f.svc.AddLine(ctx, session, AddLineInput{ProductID: f.productID, VariantID: &f.variantID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, snap.Items, 2)
	variantLine := findItem(t, snap, func(it types.CartLineItem) bool { return it.VariantID != nil })
	assert.Equal(t, int64(5000), variantLine.UnitPriceCents)
	snap, err = f.svc.RemoveLine(ctx, session, variantLine.ID)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)

	// Promotion applies once the subtotal clears its minimum.
	require.NoError(t, f.svc.ApplyPromotionCodes(ctx, session, []string{"SAVE10"}))
	snap, err = f.svc.GetCart(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), snap.DiscountTotalCents)
	assert.Equal(t, int64(27000), snap.TotalCents)
	require.Len(t, snap.Promotions, 1)
	assert.Equal(t, "SAVE10", snap.Promotions[0].Code)

	// Grant a reward balance, then spend part of it.
	cart, err := f.repo.FindActiveBySession(ctx, session)
	require.NoError(t, err)
	cart.AvailableRewardsCents = 100000
	_, err = f.repo.Update(ctx, cart)
	require.NoError(t, err)

	require.NoError(t, f.svc.ApplyRewardPoints(ctx, session, 5000))
	snap, err = f.svc.GetCart(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), snap.RewardsDiscountCents)
	assert.Equal(t, int64(22000), snap.TotalCents)

	// Gift wrap rides along as a fee line priced from its metadata.
	snap, err = f.svc.AddLine(ctx, session, AddLineInput{
		ProductID: f.giftWrapID,
		Quantity:  1,
		Metadata:  types.Metadata{types.MetadataKeyGiftWrapLine: true, types.MetadataKeyGiftWrapFee: 250},
	})
	require.NoError(t, err)
	require.Len(t, snap.Items, 2)
	wrap := findItem(t, snap, func(it types.CartLineItem) bool { return it.Metadata.IsGiftWrapLine() })
	assert.Equal(t, lineitem.GiftWrapTitle, wrap.Title)
	assert.Equal(t, int64(250), wrap.UnitPriceCents)
	assert.Equal(t, int64(30250), snap.ItemSubtotalCents)
	assert.Equal(t, int64(3025), snap.DiscountTotalCents)
	assert.Equal(t, int64(22225), snap.TotalCents)

	// Dropping the quantity re-prices shipping and the promotion.
	snap, err = f.svc.UpdateLineQuantity(ctx, session, lineID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10250), snap.ItemSubtotalCents)
	assert.Equal(t, int64(1025), snap.DiscountTotalCents)
	assert.Equal(t, int64(500), snap.ShippingTotalCents, "below the free-shipping threshold again")
	assert.Equal(t, int64(4725), snap.TotalCents)

	// Clearing removes the cart and the session binding.
	require.NoError(t, f.svc.ClearCart(ctx, session))
	snap, err = f.svc.GetCart(ctx, session)
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.NotContains(t, f.binder.bindings, session)
}

func TestSetShippingMethodOverridesDefault(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	const session = "sess-shipping"

	_, err := f.svc.AddLine(ctx, session, AddLineInput{ProductID: f.productID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetShippingMethod(ctx, session, "express"))
	snap, err := f.svc.GetCart(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), snap.ShippingTotalCents, "chosen option wins over the default")
	assert.Equal(t, int64(11500), snap.TotalCents)

	require.Error(t, f.svc.SetShippingMethod(ctx, session, "carrier-pigeon"))
}

func TestRepositoryLineOwnershipSurvivesRestart(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	snap, err := f.svc.AddLine(ctx, "sess-a", AddLineInput{ProductID: f.productID, Quantity: 1})
	require.NoError(t, err)

	// A stale redis binding falls back to the session lookup.
	f.binder.bindings["sess-a"] = uuid.NewString()
	got, err := f.svc.GetCart(ctx, "sess-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.ID, got.ID)

	// Another session cannot touch the line.
	_, err = f.svc.RemoveLine(ctx, "sess-b", snap.Items[0].ID)
	require.Error(t, err)
}

func findItem(t *testing.T, snap *types.CartSnapshot, match func(types.CartLineItem) bool) types.CartLineItem {
	t.Helper()
	for _, it := range snap.Items {
		if match(it) {
			return it
		}
	}
	t.Fatalf("no matching item in %+v", snap.Items)
	return types.CartLineItem{}
}

func int64Ptr(v int64) *int64 {
	return &v
}
