package search

import (
	"strings"

	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
	"github.com/recicar/marketplace-backend/pkg/pagination"
)

// Filters narrows any search query. All fields are optional.
type Filters struct {
	CategoryIDs []uuid.UUID
	VendorID    *uuid.UUID
	Condition   *enums.ProductCondition
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
}

// VehicleQuery selects products fitting a concrete vehicle.
type VehicleQuery struct {
	Make   string
	Model  string
	Engine string
	Year   int
}

// Repository runs the storefront search queries.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) baseQuery(ctx context.Context, filters Filters) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)
	if len(filters.CategoryIDs) > 0 {
		q = q.Where("category_id IN ?", filters.CategoryIDs)
	}
	if filters.VendorID != nil {
		q = q.Where("vendor_id = ?", *filters.VendorID)
	}
	if filters.Condition != nil {
		q = q.Where("condition = ?", filters.Condition.String())
	}
	if filters.MinPrice != nil {
		q = q.Where("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		q = q.Where("price <= ?", *filters.MaxPrice)
	}
	return q
}

// FindByPartNumber returns active products whose part number matches exactly,
// ignoring case.
func (r *Repository) FindByPartNumber(ctx context.Context, term string, filters Filters, params pagination.Params) ([]models.Product, int64, error) {
	return r.page(r.baseQuery(ctx, filters).Where("LOWER(part_number) = ?", strings.ToLower(term)), params)
}

// FindByOEMNumber returns active products whose OEM number matches exactly,
// ignoring case.
func (r *Repository) FindByOEMNumber(ctx context.Context, term string, filters Filters, params pagination.Params) ([]models.Product, int64, error) {
	return r.page(r.baseQuery(ctx, filters).Where("LOWER(oem_number) = ?", strings.ToLower(term)), params)
}

// FindGeneral runs the catch-all substring search over name, part number and
// OEM number.
func (r *Repository) FindGeneral(ctx context.Context, term string, filters Filters, params pagination.Params) ([]models.Product, int64, error) {
	q := r.baseQuery(ctx, filters)
	if term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		q = q.Where(
			"LOWER(name) LIKE ? OR LOWER(part_number) LIKE ? OR LOWER(oem_number) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	return r.page(q, params)
}

// FindByVehicle returns active products with a fitment row covering the
// given make, model, engine and year. Matching is case-insensitive. The
// EXISTS form keeps products unique without a DISTINCT the count query
// would choke on.
func (r *Repository) FindByVehicle(ctx context.Context, vehicle VehicleQuery, filters Filters, params pagination.Params) ([]models.Product, int64, error) {
	q := r.baseQuery(ctx, filters).Where(
		`EXISTS (
			SELECT 1 FROM vehicle_compatibilities vc
			WHERE vc.product_id = products.id
			  AND LOWER(vc.make) = ?
			  AND LOWER(vc.model) = ?
			  AND LOWER(vc.engine) = ?
			  AND vc.year_from <= ?
			  AND vc.year_to >= ?
		)`,
		strings.ToLower(vehicle.Make),
		strings.ToLower(vehicle.Model),
		strings.ToLower(vehicle.Engine),
		vehicle.Year,
		vehicle.Year,
	)
	return r.page(q, params)
}

func (r *Repository) page(q *gorm.DB, params pagination.Params) ([]models.Product, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	if err := q.
		Order(pagination.OrderClause(params.Sort)).
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}
