package vendors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
	"github.com/recicar/marketplace-backend/pkg/pagination"
)

// Repository persists vendor profiles.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error) {
	if err := r.db.WithContext(ctx).Create(vendor).Error; err != nil {
		return nil, err
	}
	return vendor, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Preload("User").First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.VendorStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ListByStatus returns vendors in the given status, oldest application first.
func (r *Repository) ListByStatus(ctx context.Context, status enums.VendorStatus, params pagination.Params) ([]models.Vendor, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("status = ?", status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var vendors []models.Vendor
	err := query.
		Preload("User").
		Order("created_at ASC").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&vendors).Error
	if err != nil {
		return nil, 0, err
	}
	return vendors, total, nil
}
