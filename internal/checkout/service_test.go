package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/internal/cart"
	"github.com/recicar/marketplace-backend/internal/catalog"
	"github.com/recicar/marketplace-backend/internal/notifications"
	"github.com/recicar/marketplace-backend/internal/orders"
	"github.com/recicar/marketplace-backend/internal/payments"
	"github.com/recicar/marketplace-backend/internal/pricing"
	"github.com/recicar/marketplace-backend/pkg/config"
	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'CUSTOMER',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
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

type captureSender struct {
	mu   sync.Mutex
	sent []notifications.Message
}

func (c *captureSender) Send(ctx context.Context, msg notifications.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

type checkoutFixture struct {
	db         *gorm.DB
	svc        Service
	sender     *captureSender
	dispatcher *notifications.Dispatcher
	user       *models.User
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	return newCheckoutFixtureRates(t, config.RatesConfig{
		TaxRate:               "0",
		ShippingFlatFee:       "10.00",
		FreeShippingThreshold: "100.00",
		OrderShippingFee:      "0",
	})
}

func newCheckoutFixtureRates(t *testing.T, ratesCfg config.RatesConfig) *checkoutFixture {
	t.Helper()

	db := setupCheckoutTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})

	rates, err := pricing.ParseRates(ratesCfg)
	require.NoError(t, err)

	sender := &captureSender{}
	dispatcher, err := notifications.NewDispatcher(sender, logg, 16)
	require.NoError(t, err)
	dispatcher.Start()
	t.Cleanup(dispatcher.Stop)

	userRepo := usersLoaderOverDB{db: db}

	svc, err := NewService(
		cart.NewRepository(db),
		catalog.NewRepository(db),
		orders.NewRepository(db),
		payments.NewRepository(db),
		payments.NewSimulatedProcessor(logg),
		userRepo,
		dispatcher,
		gormTxRunner{db: db},
		rates,
		logg,
	)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("buyer_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Buyer",
		LastName:     "Test",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)

	return &checkoutFixture{db: db, svc: svc, sender: sender, dispatcher: dispatcher, user: user}
}

type usersLoaderOverDB struct {
	db *gorm.DB
}

func (l usersLoaderOverDB) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := l.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (f *checkoutFixture) seedProduct(t *testing.T, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:            uuid.New(),
		VendorID:      uuid.New(),
		CategoryID:    uuid.New(),
		Name:          "Water Pump",
		Price:         decimal.NewFromFloat(price),
		Condition:     enums.ProductConditionUsed,
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *checkoutFixture) addToCart(t *testing.T, productID uuid.UUID, qty int) {
	t.Helper()
	var basket models.Cart
	err := f.db.Where("user_id = ?", f.user.ID).First(&basket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		basket = models.Cart{ID: uuid.New(), UserID: f.user.ID}
		require.NoError(t, f.db.Create(&basket).Error)
	} else {
		require.NoError(t, err)
	}
	require.NoError(t, f.db.Create(&models.CartItem{
		ID:        uuid.New(),
		CartID:    basket.ID,
		ProductID: productID,
		Quantity:  qty,
	}).Error)
}

func validInput() Input {
	return Input{
		PaymentMethod: payments.MethodCreditCard,
		Shipping: ShippingInput{
			RecipientName: "Buyer Test",
			AddressLine:   "1 Scrapyard Lane",
			City:          "Lisbon",
			PostalCode:    "1000-001",
			Country:       "PT",
		},
	}
}

func TestCheckoutHappyPath(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, 30, 5)
	f.addToCart(t, product.ID, 2)

	order, err := f.svc.Checkout(ctx, f.user.ID, validInput())
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusConfirmed, order.Status)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(60)))
	assert.True(t, order.ShippingAmount.IsZero())
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(60)))
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromInt(30)))
	require.NotNil(t, order.Payment)
	assert.Equal(t, enums.PaymentStatusCompleted, order.Payment.Status)
	require.NotNil(t, order.Shipping)
	assert.Equal(t, "Lisbon", order.Shipping.City)

	// Stock went down and the cart is empty.
	var reloaded models.Product
	require.NoError(t, f.db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 3, reloaded.StockQuantity)
	assert.True(t, reloaded.IsActive)

	var itemCount int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Count(&itemCount).Error)
	assert.Zero(t, itemCount)
}

func TestCheckoutShippingFreeByDefault(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	// Small basket: the cart quote would charge the flat fee here, but the
	// order itself ships free unless the order fee is configured.
	product := f.seedProduct(t, 15, 5)
	f.addToCart(t, product.ID, 1)

	order, err := f.svc.Checkout(ctx, f.user.ID, validInput())
	require.NoError(t, err)
	assert.True(t, order.ShippingAmount.IsZero())
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(15)))
}

func TestCheckoutChargesConfiguredOrderShipping(t *testing.T) {
	f := newCheckoutFixtureRates(t, config.RatesConfig{
		TaxRate:               "0",
		ShippingFlatFee:       "10.00",
		FreeShippingThreshold: "100.00",
		OrderShippingFee:      "7.50",
	})
	ctx := context.Background()

	product := f.seedProduct(t, 30, 5)
	f.addToCart(t, product.ID, 2)

	order, err := f.svc.Checkout(ctx, f.user.ID, validInput())
	require.NoError(t, err)
	assert.True(t, order.ShippingAmount.Equal(decimal.NewFromFloat(7.5)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromFloat(67.5)))
}

func TestCheckoutDeactivatesDrainedListing(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, 30, 2)
	f.addToCart(t, product.ID, 2)

	_, err := f.svc.Checkout(ctx, f.user.ID, validInput())
	require.NoError(t, err)

	var reloaded models.Product
	require.NoError(t, f.db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 0, reloaded.StockQuantity)
	assert.False(t, reloaded.IsActive)
}

func TestCheckoutInsufficientStockAbortsEverything(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	plentiful := f.seedProduct(t, 20, 10)
	scarce := f.seedProduct(t, 40, 1)
	f.addToCart(t, plentiful.ID, 2)
	f.addToCart(t, scarce.ID, 3)

	_, err := f.svc.Checkout(ctx, f.user.ID, validInput())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	// Nothing changed: stock intact, no order, cart still has both lines.
	var p models.Product
	require.NoError(t, f.db.First(&p, "id = ?", plentiful.ID).Error)
	assert.Equal(t, 10, p.StockQuantity)

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	var itemCount int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Count(&itemCount).Error)
	assert.Equal(t, int64(2), itemCount)
}

func TestCheckoutFailedPaymentStillCreatesOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, 30, 5)
	f.addToCart(t, product.ID, 1)

	input := validInput()
	input.PaymentMethod = "carrier_pigeon"

	order, err := f.svc.Checkout(ctx, f.user.ID, input)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	require.NotNil(t, order.Payment)
	assert.Equal(t, enums.PaymentStatusFailed, order.Payment.Status)
	assert.Nil(t, order.Payment.TransactionID)

	// Stock is still reserved for the pending order.
	var reloaded models.Product
	require.NoError(t, f.db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 4, reloaded.StockQuantity)
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, f.user.ID, validInput())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestCheckoutRejectsIncompleteShipping(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, 30, 5)
	f.addToCart(t, product.ID, 1)

	input := validInput()
	input.Shipping.City = ""

	_, err := f.svc.Checkout(ctx, f.user.ID, input)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestCheckoutSendsConfirmation(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, 30, 5)
	f.addToCart(t, product.ID, 1)

	order, err := f.svc.Checkout(ctx, f.user.ID, validInput())
	require.NoError(t, err)

	f.dispatcher.Stop()
	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, enums.NotificationOrderConfirmation, msg.Kind)
	assert.Equal(t, f.user.Email, msg.Recipient)
	assert.Equal(t, order.OrderNumber, msg.Fields["order_number"])
}
