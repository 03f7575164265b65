package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/pagination"
)

// Service exposes catalog read and vendor listing management operations.
type Service interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, vendorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, vendorID, productID uuid.UUID) error
	ListVendorProducts(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*pagination.Page[ProductDTO], error)
	ListLowStock(ctx context.Context, vendorID uuid.UUID) ([]ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	CategoryID      uuid.UUID
	Name            string
	Description     *string
	Price           decimal.Decimal
	OldPrice        *decimal.Decimal
	PartNumber      *string
	OEMNumber       *string
	Condition       enums.ProductCondition
	StockQuantity   int
	WeightKG        *decimal.Decimal
	ImageURL        *string
	Compatibilities []CompatibilityDTO
}

// UpdateProductInput holds optional mutation values for a listing.
type UpdateProductInput struct {
	CategoryID      *uuid.UUID
	Name            *string
	Description     *string
	Price           *decimal.Decimal
	OldPrice        *decimal.Decimal
	PartNumber      *string
	OEMNumber       *string
	Condition       *enums.ProductCondition
	StockQuantity   *int
	WeightKG        *decimal.Decimal
	IsActive        *bool
	ImageURL        *string
	Compatibilities *[]CompatibilityDTO
}

type vendorLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
}

type categoryLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// service implements the catalog service.
type service struct {
	repo         *Repository
	vendorRepo   vendorLoader
	categoryRepo categoryLoader
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, vendorRepo vendorLoader, categoryRepo categoryLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if vendorRepo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if categoryRepo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	return &service{repo: repo, vendorRepo: vendorRepo, categoryRepo: categoryRepo}, nil
}

// GetProduct returns the public detail view for one listing.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindDetailByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return ToProductDTO(product), nil
}

// CreateProduct inserts a listing for an approved vendor.
func (s *service) CreateProduct(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if err := s.requireApprovedVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}
	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading category")
	}

	product := &models.Product{
		VendorID:      vendorID,
		CategoryID:    input.CategoryID,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Price:         input.Price,
		OldPrice:      input.OldPrice,
		PartNumber:    normalizeCode(input.PartNumber),
		OEMNumber:     normalizeCode(input.OEMNumber),
		Condition:     input.Condition,
		StockQuantity: input.StockQuantity,
		WeightKG:      input.WeightKG,
		IsActive:      input.StockQuantity > 0,
		ImageURL:      input.ImageURL,
	}
	for _, c := range input.Compatibilities {
		product.Compatibilities = append(product.Compatibilities, models.VehicleCompatibility{
			Make:     strings.TrimSpace(c.Make),
			Model:    strings.TrimSpace(c.Model),
			YearFrom: c.YearFrom,
			YearTo:   c.YearTo,
			Engine:   c.Engine,
		})
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return ToProductDTO(created), nil
}

// UpdateProduct applies a partial mutation to a listing the vendor owns.
func (s *service) UpdateProduct(ctx context.Context, vendorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.loadOwnedProduct(ctx, vendorID, productID)
	if err != nil {
		return nil, err
	}

	if input.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading category")
		}
		product.CategoryID = *input.CategoryID
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		product.Price = *input.Price
	}
	if input.OldPrice != nil {
		product.OldPrice = input.OldPrice
	}
	if input.PartNumber != nil {
		product.PartNumber = normalizeCode(input.PartNumber)
	}
	if input.OEMNumber != nil {
		product.OEMNumber = normalizeCode(input.OEMNumber)
	}
	if input.Condition != nil {
		if !input.Condition.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product condition")
		}
		product.Condition = *input.Condition
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
		}
		product.StockQuantity = *input.StockQuantity
		if *input.StockQuantity == 0 {
			product.IsActive = false
		}
	}
	if input.WeightKG != nil {
		product.WeightKG = input.WeightKG
	}
	if input.IsActive != nil {
		if *input.IsActive && product.StockQuantity == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot activate a listing with zero stock")
		}
		product.IsActive = *input.IsActive
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}

	saved, err := s.repo.Save(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}

	if input.Compatibilities != nil {
		rows := make([]models.VehicleCompatibility, 0, len(*input.Compatibilities))
		for _, c := range *input.Compatibilities {
			if err := validateCompatibility(c); err != nil {
				return nil, err
			}
			rows = append(rows, models.VehicleCompatibility{
				ProductID: product.ID,
				Make:      strings.TrimSpace(c.Make),
				Model:     strings.TrimSpace(c.Model),
				YearFrom:  c.YearFrom,
				YearTo:    c.YearTo,
				Engine:    c.Engine,
			})
		}
		if err := s.repo.ReplaceCompatibilities(ctx, product.ID, rows); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing compatibilities")
		}
	}

	return ToProductDTO(saved), nil
}

// DeleteProduct removes a listing the vendor owns.
func (s *service) DeleteProduct(ctx context.Context, vendorID, productID uuid.UUID) error {
	if _, err := s.loadOwnedProduct(ctx, vendorID, productID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
	}
	return nil
}

// ListVendorProducts returns one page of the vendor's own listings.
func (s *service) ListVendorProducts(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*pagination.Page[ProductDTO], error) {
	products, total, err := s.repo.ListByVendor(ctx, vendorID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing vendor products")
	}
	page := pagination.NewPage(ToProductDTOs(products), params, total)
	return &page, nil
}

// ListLowStock returns the vendor's listings below the restock threshold.
func (s *service) ListLowStock(ctx context.Context, vendorID uuid.UUID) ([]ProductDTO, error) {
	products, err := s.repo.ListLowStock(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing low stock products")
	}
	return ToProductDTOs(products), nil
}

func (s *service) loadOwnedProduct(ctx context.Context, vendorID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if product.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another vendor")
	}
	return product, nil
}

func (s *service) requireApprovedVendor(ctx context.Context, vendorID uuid.UUID) error {
	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading vendor")
	}
	if vendor.Status != enums.VendorStatusApproved {
		return pkgerrors.New(pkgerrors.CodeForbidden, "vendor is not approved to list products")
	}
	return nil
}

func validateCreateInput(input CreateProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if !input.Price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if !input.Condition.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product condition")
	}
	if input.StockQuantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}
	for _, c := range input.Compatibilities {
		if err := validateCompatibility(c); err != nil {
			return err
		}
	}
	return nil
}

func validateCompatibility(c CompatibilityDTO) error {
	if strings.TrimSpace(c.Make) == "" || strings.TrimSpace(c.Model) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "compatibility make and model are required")
	}
	if c.YearFrom > c.YearTo {
		return pkgerrors.New(pkgerrors.CodeValidation, "compatibility year range is inverted")
	}
	return nil
}

func normalizeCode(code *string) *string {
	if code == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*code)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
