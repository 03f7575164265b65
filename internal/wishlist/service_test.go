package wishlist

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/internal/catalog"
	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

func setupWishlistTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE IF NOT EXISTS wishlist_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (user_id, product_id)
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newWishlistService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "wishlist-test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), catalog.NewRepository(db), logg)
	require.NoError(t, err)
	return svc
}

func seedWishlistProduct(t *testing.T, db *gorm.DB, active bool, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:            uuid.New(),
		VendorID:      uuid.New(),
		CategoryID:    uuid.New(),
		Name:          "Alternator",
		Price:         decimal.NewFromInt(45),
		Condition:     enums.ProductConditionUsed,
		StockQuantity: stock,
		IsActive:      active,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestAddListRemove(t *testing.T) {
	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	product := seedWishlistProduct(t, db, true, 3)
	require.NoError(t, svc.AddItem(ctx, userID, product.ID))

	items, err := svc.ListItems(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, product.ID, items[0].ProductID)
	assert.True(t, items[0].Available)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "Alternator", items[0].Product.Name)

	require.NoError(t, svc.RemoveItem(ctx, userID, product.ID))
	items, err = svc.ListItems(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAddItemIsIdempotent(t *testing.T) {
	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	product := seedWishlistProduct(t, db, true, 3)
	require.NoError(t, svc.AddItem(ctx, userID, product.ID))
	require.NoError(t, svc.AddItem(ctx, userID, product.ID))

	items, err := svc.ListItems(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestItemCount(t *testing.T) {
	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	count, err := svc.ItemCount(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, count)

	first := seedWishlistProduct(t, db, true, 3)
	second := seedWishlistProduct(t, db, true, 1)
	require.NoError(t, svc.AddItem(ctx, userID, first.ID))
	require.NoError(t, svc.AddItem(ctx, userID, second.ID))
	require.NoError(t, svc.AddItem(ctx, uuid.New(), first.ID))

	count, err = svc.ItemCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddItemRejectsUnknownProduct(t *testing.T) {
	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)

	err := svc.AddItem(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestRemoveMissingItem(t *testing.T) {
	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)

	err := svc.RemoveItem(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestListFlagsUnavailableItems(t *testing.T) {
	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	inactive := seedWishlistProduct(t, db, false, 3)
	drained := seedWishlistProduct(t, db, true, 0)

	require.NoError(t, svc.AddItem(ctx, userID, inactive.ID))
	require.NoError(t, svc.AddItem(ctx, userID, drained.ID))

	items, err := svc.ListItems(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.False(t, item.Available)
	}
}

func TestListIsScopedToUser(t *testing.T) {
	db := setupWishlistTestDB(t)
	svc := newWishlistService(t, db)
	ctx := context.Background()

	product := seedWishlistProduct(t, db, true, 3)
	owner := uuid.New()
	require.NoError(t, svc.AddItem(ctx, owner, product.ID))

	items, err := svc.ListItems(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, items)
}
