package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/internal/catalog"
	"github.com/recicar/marketplace-backend/internal/pricing"
	"github.com/recicar/marketplace-backend/pkg/config"
	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  category_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  price TEXT NOT NULL,
  old_price TEXT,
  part_number TEXT,
  oem_number TEXT,
  condition TEXT NOT NULL,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  weight_kg TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  image_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newCartService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	rates, err := pricing.ParseRates(config.RatesConfig{
		TaxRate:               "0",
		ShippingFlatFee:       "10.00",
		FreeShippingThreshold: "100.00",
		OrderShippingFee:      "0",
	})
	require.NoError(t, err)

	svc, err := NewService(NewRepository(db), catalog.NewRepository(db), rates)
	require.NoError(t, err)
	return svc
}

func seedCartProduct(t *testing.T, db *gorm.DB, price float64, stock int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:            uuid.New(),
		VendorID:      uuid.New(),
		CategoryID:    uuid.New(),
		Name:          "Shock Absorber",
		Price:         decimal.NewFromFloat(price),
		Condition:     enums.ProductConditionUsed,
		StockQuantity: stock,
		IsActive:      active,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr, "expected typed error, got %v", err)
	assert.Equal(t, code, appErr.Code())
}

func TestAddItemCreatesCartLazily(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	product := seedCartProduct(t, db, 25.50, 8, true)

	dto, err := svc.AddItem(ctx, userID, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 2, dto.ItemCount)
	assert.True(t, dto.Subtotal.Equal(decimal.NewFromFloat(51.00)))
}

func TestAddItemMergesQuantities(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	product := seedCartProduct(t, db, 10, 20, true)

	_, err := svc.AddItem(ctx, userID, product.ID, 4)
	require.NoError(t, err)

	dto, err := svc.AddItem(ctx, userID, product.ID, 3)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 7, dto.Items[0].Quantity)
}

func TestAddItemEnforcesMergedCap(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	product := seedCartProduct(t, db, 10, 50, true)

	_, err := svc.AddItem(ctx, userID, product.ID, 7)
	require.NoError(t, err)

	// 7 + 4 breaches the per-item cap even though stock is plentiful.
	_, err = svc.AddItem(ctx, userID, product.ID, 4)
	requireCode(t, err, pkgerrors.CodeConflict)

	// The failed add must not have changed the line.
	dto, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 7, dto.Items[0].Quantity)
}

func TestAddItemEnforcesStockOnMerge(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	product := seedCartProduct(t, db, 10, 5, true)

	_, err := svc.AddItem(ctx, userID, product.ID, 3)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, userID, product.ID, 3)
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestAddItemRejectsBadQuantities(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()

	product := seedCartProduct(t, db, 10, 5, true)

	_, err := svc.AddItem(ctx, uuid.New(), product.ID, 0)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AddItem(ctx, uuid.New(), product.ID, 11)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestAddItemRejectsInactiveProduct(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()

	product := seedCartProduct(t, db, 10, 5, false)

	_, err := svc.AddItem(ctx, uuid.New(), product.ID, 1)
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestUpdateRemoveAndClear(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	first := seedCartProduct(t, db, 10, 10, true)
	second := seedCartProduct(t, db, 20, 10, true)

	_, err := svc.AddItem(ctx, userID, first.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, second.ID, 1)
	require.NoError(t, err)

	dto, err := svc.UpdateItemQuantity(ctx, userID, first.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 6, dto.ItemCount)

	count, err := svc.ItemCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	dto, err = svc.RemoveItem(ctx, userID, first.ID)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, second.ID, dto.Items[0].ProductID)

	require.NoError(t, svc.ClearCart(ctx, userID))
	dto, err = svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
}

func TestValidateFlagsDriftedLines(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	healthy := seedCartProduct(t, db, 10, 10, true)
	fading := seedCartProduct(t, db, 10, 10, true)

	_, err := svc.AddItem(ctx, userID, healthy.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, fading.ID, 5)
	require.NoError(t, err)

	// Stock drains and the listing dies after the lines were added.
	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", fading.ID).
		Updates(map[string]any{"stock_quantity": 1, "is_active": false}).Error)

	issues, err := svc.Validate(ctx, userID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, fading.ID, issues[0].ProductID)
}

func TestQuoteAppliesShippingStep(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	cheap := seedCartProduct(t, db, 30, 10, true)

	_, err := svc.AddItem(ctx, userID, cheap.ID, 2)
	require.NoError(t, err)

	quote, err := svc.Quote(ctx, userID)
	require.NoError(t, err)
	assert.True(t, quote.Subtotal.Equal(decimal.NewFromInt(60)))
	assert.True(t, quote.Shipping.Equal(decimal.NewFromInt(10)))
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(70)))

	// Crossing the threshold zeroes the shipping fee.
	_, err = svc.AddItem(ctx, userID, cheap.ID, 2)
	require.NoError(t, err)

	quote, err = svc.Quote(ctx, userID)
	require.NoError(t, err)
	assert.True(t, quote.Subtotal.Equal(decimal.NewFromInt(120)))
	assert.True(t, quote.Shipping.IsZero())
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(120)))
}
