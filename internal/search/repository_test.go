package search

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
	"github.com/recicar/marketplace-backend/pkg/pagination"
)

func setupSearchTestDB(t *testing.T) *gorm.DB {
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
  price NUMERIC NOT NULL,
  old_price NUMERIC,
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

type seedProduct struct {
	name       string
	partNumber *string
	oemNumber  *string
	price      float64
	active     bool
	condition  enums.ProductCondition
}

func seedProducts(t *testing.T, db *gorm.DB, seeds []seedProduct) []models.Product {
	t.Helper()
	out := make([]models.Product, 0, len(seeds))
	for _, s := range seeds {
		condition := s.condition
		if condition == "" {
			condition = enums.ProductConditionUsed
		}
		p := models.Product{
			ID:            uuid.New(),
			VendorID:      uuid.New(),
			CategoryID:    uuid.New(),
			Name:          s.name,
			Price:         decimal.NewFromFloat(s.price),
			PartNumber:    s.partNumber,
			OEMNumber:     s.oemNumber,
			Condition:     condition,
			StockQuantity: 5,
			IsActive:      s.active,
		}
		require.NoError(t, db.Create(&p).Error)
		out = append(out, p)
	}
	return out
}

func strPtr(v string) *string { return &v }

func TestRepositoryExactMatches(t *testing.T) {
	db := setupSearchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedProducts(t, db, []seedProduct{
		{name: "Brake Pad Set", partNumber: strPtr("BP-12345"), oemNumber: strPtr("OEM-777"), price: 40, active: true},
		{name: "Brake Disc", partNumber: strPtr("BD-99999"), price: 70, active: true},
		{name: "Inactive Pad", partNumber: strPtr("BP-12345"), price: 35, active: false},
	})

	hits, total, err := repo.FindByPartNumber(ctx, "BP-12345", Filters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, hits, 1)
	assert.Equal(t, "Brake Pad Set", hits[0].Name)

	hits, total, err = repo.FindByOEMNumber(ctx, "OEM-777", Filters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, hits, 1)
	assert.Equal(t, "Brake Pad Set", hits[0].Name)
}

func TestRepositoryExactMatchIgnoresCase(t *testing.T) {
	db := setupSearchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedProducts(t, db, []seedProduct{
		{name: "Caliper Bracket", partNumber: strPtr("brk-4471x"), oemNumber: strPtr("vw-1j0-615-123"), price: 25, active: true},
	})

	hits, total, err := repo.FindByPartNumber(ctx, "BRK-4471X", Filters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, hits, 1)
	assert.Equal(t, "Caliper Bracket", hits[0].Name)

	_, total, err = repo.FindByOEMNumber(ctx, "VW-1J0-615-123", Filters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestRepositoryGeneralSearch(t *testing.T) {
	db := setupSearchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedProducts(t, db, []seedProduct{
		{name: "Front Brake Pad", price: 40, active: true},
		{name: "Rear Brake Pad", price: 42, active: true},
		{name: "Oil Filter", oemNumber: strPtr("BRAKE-X"), price: 12, active: true},
		{name: "Clutch Kit", price: 150, active: true},
	})

	hits, total, err := repo.FindGeneral(ctx, "brake", Filters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, hits, 3)
}

func TestRepositoryPriceFilters(t *testing.T) {
	db := setupSearchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedProducts(t, db, []seedProduct{
		{name: "Cheap Pad", price: 10, active: true},
		{name: "Mid Pad", price: 50, active: true},
		{name: "Premium Pad", price: 200, active: true},
	})

	min := decimal.NewFromInt(20)
	max := decimal.NewFromInt(100)
	hits, total, err := repo.FindGeneral(ctx, "pad", Filters{MinPrice: &min, MaxPrice: &max}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, hits, 1)
	assert.Equal(t, "Mid Pad", hits[0].Name)
}

func TestRepositoryVehicleFit(t *testing.T) {
	db := setupSearchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	products := seedProducts(t, db, []seedProduct{
		{name: "Corolla Alternator", price: 90, active: true},
		{name: "Golf Alternator", price: 95, active: true},
	})

	require.NoError(t, db.Create(&models.VehicleCompatibility{
		ID:        uuid.New(),
		ProductID: products[0].ID,
		Make:      "Toyota",
		Model:     "Corolla",
		Engine:    strPtr("1.8 VVT-i"),
		YearFrom:  2005,
		YearTo:    2012,
	}).Error)
	require.NoError(t, db.Create(&models.VehicleCompatibility{
		ID:        uuid.New(),
		ProductID: products[1].ID,
		Make:      "Volkswagen",
		Model:     "Golf",
		Engine:    strPtr("2.0 TDI"),
		YearFrom:  2010,
		YearTo:    2018,
	}).Error)

	query := VehicleQuery{Make: "toyota", Model: "corolla", Engine: "1.8 vvt-i", Year: 2010}
	hits, total, err := repo.FindByVehicle(ctx, query, Filters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, hits, 1)
	assert.Equal(t, "Corolla Alternator", hits[0].Name)

	query.Year = 2020
	_, total, err = repo.FindByVehicle(ctx, query, Filters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestRepositoryVehicleFitFiltersByEngine(t *testing.T) {
	db := setupSearchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	products := seedProducts(t, db, []seedProduct{
		{name: "Golf Injector 1.6", price: 110, active: true},
		{name: "Golf Injector 2.0", price: 130, active: true},
	})

	engines := []string{"1.6 TDI", "2.0 TDI"}
	for i, p := range products {
		require.NoError(t, db.Create(&models.VehicleCompatibility{
			ID:        uuid.New(),
			ProductID: p.ID,
			Make:      "Volkswagen",
			Model:     "Golf",
			Engine:    strPtr(engines[i]),
			YearFrom:  2012,
			YearTo:    2019,
		}).Error)
	}

	hits, total, err := repo.FindByVehicle(ctx, VehicleQuery{Make: "volkswagen", Model: "golf", Engine: "1.6 tdi", Year: 2015}, Filters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, hits, 1)
	assert.Equal(t, "Golf Injector 1.6", hits[0].Name)
}

func TestRepositoryVehicleFitCountsUnique(t *testing.T) {
	db := setupSearchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	products := seedProducts(t, db, []seedProduct{
		{name: "Universal Wiper Motor", price: 45, active: true},
	})

	// Two overlapping fitment rows for the same product must count once.
	for _, years := range [][2]int{{2008, 2014}, {2012, 2018}} {
		require.NoError(t, db.Create(&models.VehicleCompatibility{
			ID:        uuid.New(),
			ProductID: products[0].ID,
			Make:      "Ford",
			Model:     "Focus",
			Engine:    strPtr("1.0 EcoBoost"),
			YearFrom:  years[0],
			YearTo:    years[1],
		}).Error)
	}

	hits, total, err := repo.FindByVehicle(ctx, VehicleQuery{Make: "ford", Model: "focus", Engine: "1.0 ecoboost", Year: 2013}, Filters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, hits, 1)
}
