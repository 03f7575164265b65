package vehicles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/pkg/db/models"
)

// Repository reads the vehicle reference data backing the search dropdowns.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListMakes(ctx context.Context) ([]models.CarMake, error) {
	var makes []models.CarMake
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&makes).Error
	if err != nil {
		return nil, err
	}
	return makes, nil
}

func (r *Repository) FindMakeByID(ctx context.Context, id uuid.UUID) (*models.CarMake, error) {
	var carMake models.CarMake
	if err := r.db.WithContext(ctx).First(&carMake, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &carMake, nil
}

func (r *Repository) ListModelsByMake(ctx context.Context, makeID uuid.UUID) ([]models.CarModel, error) {
	var list []models.CarModel
	err := r.db.WithContext(ctx).
		Where("make_id = ?", makeID).
		Order("name ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
