package catalog

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE IF NOT EXISTS vendors (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  business_name TEXT NOT NULL UNIQUE,
  tax_id TEXT NOT NULL UNIQUE,
  description TEXT,
  status TEXT NOT NULL DEFAULT 'PENDING',
  commission_rate TEXT NOT NULL DEFAULT '0',
  categories TEXT NOT NULL DEFAULT '{}',
  address_line TEXT,
  city TEXT,
  region TEXT,
  postal_code TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  parent_id TEXT,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
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
		`CREATE TABLE IF NOT EXISTS vehicle_compatibilities (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  make TEXT NOT NULL,
  model TEXT NOT NULL,
  year_from INTEGER NOT NULL,
  year_to INTEGER NOT NULL,
  engine TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

func mustCreateTestVendor(t *testing.T, tx *gorm.DB, status enums.VendorStatus) *models.Vendor {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("vendor_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Vendor",
		LastName:     "Tester",
		Role:         enums.UserRoleVendor,
		IsActive:     true,
	}
	require.NoError(t, tx.Create(user).Error)

	vendor := &models.Vendor{
		ID:           uuid.New(),
		UserID:       user.ID,
		BusinessName: fmt.Sprintf("Salvage Co %s", uuid.NewString()),
		TaxID:        uuid.NewString(),
		Status:       status,
		Categories:   []string{},
	}
	require.NoError(t, tx.Create(vendor).Error)
	return vendor
}

func mustCreateTestCategory(t *testing.T, tx *gorm.DB) *models.Category {
	t.Helper()
	category := &models.Category{
		ID:   uuid.New(),
		Name: "Brakes",
		Slug: fmt.Sprintf("brakes-%s", uuid.NewString()),
	}
	require.NoError(t, tx.Create(category).Error)
	return category
}

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, vendorID, categoryID uuid.UUID, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:            uuid.New(),
		VendorID:      vendorID,
		CategoryID:    categoryID,
		Name:          "Front Brake Pad Set",
		Price:         decimal.NewFromFloat(49.90),
		Condition:     enums.ProductConditionUsed,
		StockQuantity: stock,
		IsActive:      stock > 0,
	}
	require.NoError(t, tx.Create(product).Error)
	return product
}
