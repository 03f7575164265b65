package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/internal/catalog"
	"github.com/recicar/marketplace-backend/pkg/db"
	"github.com/recicar/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

// ItemDTO is one saved product. Product is nil when the listing was deleted
// after it was saved.
type ItemDTO struct {
	ProductID uuid.UUID           `json:"product_id"`
	Available bool                `json:"available"`
	AddedAt   time.Time           `json:"added_at"`
	Product   *catalog.ProductDTO `json:"product,omitempty"`
}

// Service manages a customer's saved products.
type Service interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	ListItems(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error)
	ItemCount(ctx context.Context, userID uuid.UUID) (int, error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     *Repository
	products productLoader
	logg     *logger.Logger
}

func NewService(repo *Repository, products productLoader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, products: products, logg: logg}, nil
}

// AddItem saves a product. Saving something already on the list is a no-op so
// double-clicks never surface an error.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) error {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}

	err := s.repo.Create(ctx, &models.WishlistItem{UserID: userID, ProductID: productID})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving wishlist item")
	}
	return nil
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	removed, err := s.repo.Delete(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing wishlist item")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
	}
	return nil
}

// ListItems returns saved products newest first. Inactive listings stay on
// the list but are flagged unavailable.
func (s *service) ListItems(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing wishlist")
	}

	dtos := make([]ItemDTO, 0, len(items))
	for i := range items {
		item := items[i]
		dto := ItemDTO{
			ProductID: item.ProductID,
			AddedAt:   item.CreatedAt,
		}
		if item.Product != nil {
			dto.Product = catalog.ToProductDTO(item.Product)
			dto.Available = item.Product.IsActive && item.Product.StockQuantity > 0
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

func (s *service) ItemCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting wishlist")
	}
	return int(count), nil
}
