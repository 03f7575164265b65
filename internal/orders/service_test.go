package orders

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
	"github.com/recicar/marketplace-backend/internal/payments"
	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
	"github.com/recicar/marketplace-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  subtotal TEXT NOT NULL,
  tax_amount TEXT NOT NULL,
  shipping_amount TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  line_total TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  method TEXT NOT NULL,
  provider TEXT,
  amount TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  transaction_id TEXT,
  processed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS shipping_infos (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  recipient_name TEXT NOT NULL,
  address_line TEXT NOT NULL,
  city TEXT NOT NULL,
  region TEXT,
  postal_code TEXT NOT NULL,
  country TEXT NOT NULL,
  phone TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newOrdersService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(db),
		catalog.NewRepository(db),
		payments.NewRepository(db),
		gormTxRunner{db: db},
		logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard}),
	)
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, db *gorm.DB, customerID uuid.UUID, status enums.OrderStatus, paymentStatus enums.PaymentStatus) (*models.Order, *models.Product) {
	t.Helper()

	product := &models.Product{
		ID:            uuid.New(),
		VendorID:      uuid.New(),
		CategoryID:    uuid.New(),
		Name:          "Radiator",
		Price:         decimal.NewFromInt(80),
		Condition:     enums.ProductConditionUsed,
		StockQuantity: 0,
		IsActive:      false,
	}
	require.NoError(t, db.Create(product).Error)

	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    uuid.NewString(),
		CustomerID:     customerID,
		Status:         status,
		Subtotal:       decimal.NewFromInt(160),
		TaxAmount:      decimal.Zero,
		ShippingAmount: decimal.Zero,
		TotalAmount:    decimal.NewFromInt(160),
		Items: []models.OrderItem{{
			ProductID:   product.ID,
			VendorID:    product.VendorID,
			ProductName: product.Name,
			Quantity:    2,
			UnitPrice:   decimal.NewFromInt(80),
			LineTotal:   decimal.NewFromInt(160),
		}},
		Payment: &models.Payment{
			Method: payments.MethodCreditCard,
			Amount: decimal.NewFromInt(160),
			Status: paymentStatus,
		},
	}
	require.NoError(t, db.Create(order).Error)
	return order, product
}

func TestGetOrderHidesOtherCustomers(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	order, _ := seedOrder(t, db, owner, enums.OrderStatusPending, enums.PaymentStatusCompleted)

	got, err := svc.GetOrder(ctx, owner, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)

	_, err = svc.GetOrder(ctx, uuid.New(), order.OrderNumber)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestCancelOrderRestoresStockAndRefunds(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := uuid.New()
	order, product := seedOrder(t, db, customer, enums.OrderStatusPending, enums.PaymentStatusCompleted)

	got, err := svc.CancelOrder(ctx, customer, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
	require.NotNil(t, got.Payment)
	assert.Equal(t, enums.PaymentStatusRefunded, got.Payment.Status)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 2, reloaded.StockQuantity)
	assert.True(t, reloaded.IsActive)
}

func TestCancelOrderLeavesFailedPaymentAlone(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := uuid.New()
	order, _ := seedOrder(t, db, customer, enums.OrderStatusPending, enums.PaymentStatusFailed)

	got, err := svc.CancelOrder(ctx, customer, order.OrderNumber)
	require.NoError(t, err)
	require.NotNil(t, got.Payment)
	assert.Equal(t, enums.PaymentStatusFailed, got.Payment.Status)
}

func TestCancelOrderRejectsLateCancellations(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := uuid.New()
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	} {
		order, _ := seedOrder(t, db, customer, status, enums.PaymentStatusCompleted)
		_, err := svc.CancelOrder(ctx, customer, order.OrderNumber)
		require.Error(t, err, "status %s should not be cancellable", status)
		appErr := pkgerrors.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
	}
}

func TestAdvanceStatusFollowsChain(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	order, _ := seedOrder(t, db, uuid.New(), enums.OrderStatusConfirmed, enums.PaymentStatusCompleted)

	got, err := svc.AdvanceStatus(ctx, order.OrderNumber, enums.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, got.Status)

	// Skipping straight to delivered is rejected.
	_, err = svc.AdvanceStatus(ctx, order.OrderNumber, enums.OrderStatusDelivered)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestListOrdersPages(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	customer := uuid.New()
	for i := 0; i < 3; i++ {
		seedOrder(t, db, customer, enums.OrderStatusPending, enums.PaymentStatusCompleted)
	}
	seedOrder(t, db, uuid.New(), enums.OrderStatusPending, enums.PaymentStatusCompleted)

	page, err := svc.ListOrders(ctx, customer, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Len(t, page.Items, 3)
}
