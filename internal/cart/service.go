package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/internal/pricing"
	"github.com/recicar/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
)

// MaxQuantityPerItem caps how many units of one product a single cart can
// hold, independent of stock.
const MaxQuantityPerItem = 10

// Service exposes basket operations for authenticated customers.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error)
	UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
	ItemCount(ctx context.Context, userID uuid.UUID) (int, error)
	Validate(ctx context.Context, userID uuid.UUID) ([]Issue, error)
	Quote(ctx context.Context, userID uuid.UUID) (*QuoteDTO, error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     *Repository
	products productLoader
	rates    pricing.Rates
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, products productLoader, rates pricing.Rates) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, products: products, rates: rates}, nil
}

// GetCart returns the basket, creating an empty one on first read.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return ToCartDTO(cart), nil
}

// AddItem puts quantity units of the product into the basket. When the
// product is already present the quantities merge, and the merged total must
// respect both the per-item cap and available stock.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	product, err := s.loadSellableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		merged := existing.Quantity + quantity
		if err := checkMergedQuantity(merged, product.StockQuantity); err != nil {
			return nil, err
		}
		existing.Quantity = merged
		if err := s.repo.SaveItem(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
		}

	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := checkMergedQuantity(quantity, product.StockQuantity); err != nil {
			return nil, err
		}
		item := &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding cart item")
		}

	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}

	return s.GetCart(ctx, userID)
}

// UpdateItemQuantity replaces the quantity of an existing line.
func (s *service) UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	product, err := s.loadSellableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.StockQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "requested quantity exceeds available stock")
	}

	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	item, err := s.repo.FindItem(ctx, cart.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}

	item.Quantity = quantity
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem drops one line from the basket.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if err := s.repo.DeleteItem(ctx, cart.ID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart item")
	}
	return s.GetCart(ctx, userID)
}

// ClearCart removes every line. Clearing a missing cart is a no-op.
func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}

// ItemCount returns the total unit count across the basket.
func (s *service) ItemCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.CountItems(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting cart items")
	}
	return count, nil
}

// Validate re-checks every line against the live listings and reports the
// ones that can no longer be checked out.
func (s *service) Validate(ctx context.Context, userID uuid.UUID) ([]Issue, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []Issue{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return validateItems(cart.Items), nil
}

// Quote previews the checkout totals for the current basket without touching
// stock.
func (s *service) Quote(ctx context.Context, userID uuid.UUID) (*QuoteDTO, error) {
	dto, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	shipping := s.rates.ShippingFor(dto.Subtotal)
	tax := s.rates.TaxFor(dto.Subtotal)
	return &QuoteDTO{
		Subtotal: dto.Subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    dto.Subtotal.Add(shipping).Add(tax),
	}, nil
}

func (s *service) loadSellableProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is not available")
	}
	return product, nil
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if quantity > MaxQuantityPerItem {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity cannot exceed %d per product", MaxQuantityPerItem))
	}
	return nil
}

// checkMergedQuantity enforces the cap and stock against the merged line
// quantity, so repeated adds cannot sneak past either limit.
func checkMergedQuantity(merged, stock int) error {
	if merged > MaxQuantityPerItem {
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("cart cannot hold more than %d units of one product", MaxQuantityPerItem))
	}
	if merged > stock {
		return pkgerrors.New(pkgerrors.CodeConflict, "requested quantity exceeds available stock")
	}
	return nil
}

func validateItems(items []models.CartItem) []Issue {
	issues := []Issue{}
	for _, item := range items {
		switch {
		case item.Product == nil:
			issues = append(issues, Issue{ProductID: item.ProductID, Reason: "product no longer exists"})
		case !item.Product.IsActive:
			issues = append(issues, Issue{ProductID: item.ProductID, Reason: "product is no longer available"})
		case item.Quantity > item.Product.StockQuantity:
			issues = append(issues, Issue{ProductID: item.ProductID, Reason: "requested quantity exceeds available stock"})
		}
	}
	return issues
}
