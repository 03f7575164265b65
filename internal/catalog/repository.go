package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/pagination"
)

// LowStockThreshold marks the quantity below which a listing shows up on the
// vendor's restock report.
const LowStockThreshold = 5

// Repository wires together product persistence helpers.
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

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindDetailByID loads the product with its category, vendor and fitment rows.
func (r *Repository) FindDetailByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Vendor").
		Preload("Compatibilities").
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts the product together with any fitment rows.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Save persists the full product row.
func (r *Repository) Save(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes the product row. Fitment rows cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// ReplaceCompatibilities swaps the product's fitment rows for the given set.
func (r *Repository) ReplaceCompatibilities(ctx context.Context, productID uuid.UUID, rows []models.VehicleCompatibility) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.VehicleCompatibility{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

// ListByVendor returns one page of the vendor's listings, newest first.
func (r *Repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Product, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&models.Product{}).Where("vendor_id = ?", vendorID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	if err := base.
		Order(pagination.OrderClause(params.Sort)).
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListLowStock returns the vendor's active listings at or below the restock
// threshold.
func (r *Repository) ListLowStock(ctx context.Context, vendorID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND is_active = ? AND stock_quantity < ?", vendorID, true, LowStockThreshold).
		Order("stock_quantity ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// DecrementStock atomically reduces stock by qty, guarding against going
// negative. Returns false when the row had insufficient stock, so two
// concurrent checkouts can never both win the last unit.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, qty).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IncrementStock restores qty units, used when an order is cancelled.
func (r *Repository) IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", qty)).Error
}

// DeactivateIfOutOfStock flips is_active off for listings that just hit zero.
func (r *Repository) DeactivateIfOutOfStock(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity = 0", productID).
		UpdateColumn("is_active", false).Error
}

// Reactivate flips is_active back on, used after a restock or cancellation.
func (r *Repository) Reactivate(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity > 0", productID).
		UpdateColumn("is_active", true).Error
}
