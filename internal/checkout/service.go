package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/internal/cart"
	"github.com/recicar/marketplace-backend/internal/catalog"
	"github.com/recicar/marketplace-backend/internal/notifications"
	"github.com/recicar/marketplace-backend/internal/orders"
	"github.com/recicar/marketplace-backend/internal/payments"
	"github.com/recicar/marketplace-backend/internal/pricing"
	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

// ShippingInput is the destination the customer entered at checkout.
type ShippingInput struct {
	RecipientName string
	AddressLine   string
	City          string
	Region        *string
	PostalCode    string
	Country       string
	Phone         *string
}

// Input is the full checkout payload.
type Input struct {
	PaymentMethod string
	Shipping      ShippingInput
}

// Service turns a cart into an order.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, input Input) (*orders.OrderDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	cartRepo    *cart.Repository
	catalogRepo *catalog.Repository
	orderRepo   *orders.Repository
	paymentRepo *payments.Repository
	processor   payments.Processor
	users       userLoader
	dispatcher  *notifications.Dispatcher
	tx          txRunner
	rates       pricing.Rates
	logg        *logger.Logger
}

// NewService constructs the checkout service.
func NewService(
	cartRepo *cart.Repository,
	catalogRepo *catalog.Repository,
	orderRepo *orders.Repository,
	paymentRepo *payments.Repository,
	processor payments.Processor,
	users userLoader,
	dispatcher *notifications.Dispatcher,
	tx txRunner,
	rates pricing.Rates,
	logg *logger.Logger,
) (Service, error) {
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if paymentRepo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if processor == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		processor:   processor,
		users:       users,
		dispatcher:  dispatcher,
		tx:          tx,
		rates:       rates,
		logg:        logg,
	}, nil
}

// Checkout materializes the cart into an order in a single transaction.
// Stock is reserved with conditional decrements, so concurrent checkouts of
// the last unit cannot both succeed. The payment outcome is recorded but
// never rolls the order back; a failed charge leaves a PENDING order the
// customer can settle later.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, input Input) (*orders.OrderDTO, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	basket, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if len(basket.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	var orderNumber string
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartTx := s.cartRepo.WithTx(tx)
		catalogTx := s.catalogRepo.WithTx(tx)
		orderTx := s.orderRepo.WithTx(tx)

		order, buildErr := s.buildOrder(ctx, catalogTx, userID, basket.Items, input)
		if buildErr != nil {
			return buildErr
		}

		charge := s.processor.Charge(ctx, payments.ChargeRequest{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Method:      normalizeMethod(input.PaymentMethod),
			Amount:      order.TotalAmount,
		})

		order.Payment = &models.Payment{
			Method:      normalizeMethod(input.PaymentMethod),
			Amount:      order.TotalAmount,
			Status:      charge.Status,
			ProcessedAt: &charge.ProcessedAt,
		}
		order.Payment.TransactionID = charge.TransactionID
		if charge.Status == enums.PaymentStatusCompleted {
			order.Status = enums.OrderStatusConfirmed
		}

		if _, createErr := orderTx.Create(ctx, order); createErr != nil {
			return createErr
		}

		if clearErr := cartTx.ClearItems(ctx, basket.ID); clearErr != nil {
			return clearErr
		}

		orderNumber = order.OrderNumber
		return nil
	})
	if err != nil {
		var appErr *pkgerrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
	}

	created, err := s.orderRepo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading order")
	}

	s.notifyConfirmation(ctx, userID, created)

	ctx = s.logg.WithOrderNumber(ctx, created.OrderNumber)
	s.logg.Info(ctx, "checkout completed")
	return orders.ToOrderDTO(created), nil
}

// buildOrder reserves stock for every line and assembles the order snapshot.
// Any failure aborts the surrounding transaction, releasing the reservations.
func (s *service) buildOrder(ctx context.Context, catalogTx *catalog.Repository, userID uuid.UUID, items []models.CartItem, input Input) (*models.Order, error) {
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: uuid.NewString(),
		CustomerID:  userID,
		Status:      enums.OrderStatusPending,
		Subtotal:    decimal.Zero,
	}

	for _, item := range items {
		product, err := catalogTx.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "a cart item no longer exists").
					WithDetails(map[string]any{"product_id": item.ProductID})
			}
			return nil, err
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a cart item is no longer available").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}

		ok, err := catalogTx.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for a cart item").
				WithDetails(map[string]any{"product_id": item.ProductID, "requested": item.Quantity})
		}
		if err := catalogTx.DeactivateIfOutOfStock(ctx, item.ProductID); err != nil {
			return nil, err
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   product.ID,
			VendorID:    product.VendorID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
			LineTotal:   lineTotal,
		})
		order.Subtotal = order.Subtotal.Add(lineTotal)
	}

	order.ShippingAmount = s.rates.OrderShippingFor(order.Subtotal)
	order.TaxAmount = s.rates.TaxFor(order.Subtotal)
	order.TotalAmount = order.Subtotal.Add(order.ShippingAmount).Add(order.TaxAmount)
	order.ShippingInfo = &models.ShippingInfo{
		RecipientName: strings.TrimSpace(input.Shipping.RecipientName),
		AddressLine:   strings.TrimSpace(input.Shipping.AddressLine),
		City:          strings.TrimSpace(input.Shipping.City),
		Region:        input.Shipping.Region,
		PostalCode:    strings.TrimSpace(input.Shipping.PostalCode),
		Country:       strings.TrimSpace(input.Shipping.Country),
		Phone:         input.Shipping.Phone,
	}
	return order, nil
}

// notifyConfirmation enqueues the confirmation email after the transaction
// committed. Delivery is best-effort.
func (s *service) notifyConfirmation(ctx context.Context, userID uuid.UUID, order *models.Order) {
	if s.dispatcher == nil {
		return
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logg.Error(ctx, "loading customer for confirmation email", err)
		return
	}
	s.dispatcher.Enqueue(ctx, notifications.Message{
		Kind:      enums.NotificationOrderConfirmation,
		Recipient: user.Email,
		Subject:   "Your order " + order.OrderNumber,
		Fields: map[string]string{
			"order_number": order.OrderNumber,
			"total":        order.TotalAmount.StringFixed(2),
			"status":       order.Status.String(),
		},
	})
}

func validateInput(input Input) error {
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	shipping := input.Shipping
	missing := []string{}
	if strings.TrimSpace(shipping.RecipientName) == "" {
		missing = append(missing, "recipient_name")
	}
	if strings.TrimSpace(shipping.AddressLine) == "" {
		missing = append(missing, "address_line")
	}
	if strings.TrimSpace(shipping.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(shipping.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if strings.TrimSpace(shipping.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

func normalizeMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
