package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/internal/catalog"
	"github.com/recicar/marketplace-backend/internal/payments"
	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
	"github.com/recicar/marketplace-backend/pkg/pagination"
)

// Service exposes order history and lifecycle operations.
type Service interface {
	ListOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error)
	GetOrder(ctx context.Context, customerID uuid.UUID, orderNumber string) (*OrderDTO, error)
	CancelOrder(ctx context.Context, customerID uuid.UUID, orderNumber string) (*OrderDTO, error)
	AdvanceStatus(ctx context.Context, orderNumber string, next enums.OrderStatus) (*OrderDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo        *Repository
	catalogRepo *catalog.Repository
	paymentRepo *payments.Repository
	tx          txRunner
	logg        *logger.Logger
}

// NewService constructs an orders service instance.
func NewService(repo *Repository, catalogRepo *catalog.Repository, paymentRepo *payments.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if paymentRepo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, catalogRepo: catalogRepo, paymentRepo: paymentRepo, tx: tx, logg: logg}, nil
}

// ListOrders pages through the customer's order history.
func (s *service) ListOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	list, total, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	page := pagination.NewPage(ToOrderDTOs(list), params, total)
	return &page, nil
}

// GetOrder loads one of the customer's orders by number. Other customers'
// orders read as not found rather than forbidden.
func (s *service) GetOrder(ctx context.Context, customerID uuid.UUID, orderNumber string) (*OrderDTO, error) {
	order, err := s.loadOwnedOrder(ctx, customerID, orderNumber)
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(order), nil
}

// CancelOrder cancels a PENDING or CONFIRMED order, restores the reserved
// stock and refunds a completed payment. The whole operation runs in one
// transaction.
func (s *service) CancelOrder(ctx context.Context, customerID uuid.UUID, orderNumber string) (*OrderDTO, error) {
	order, err := s.loadOwnedOrder(ctx, customerID, orderNumber)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order in status %s cannot be cancelled", order.Status))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersTx := s.repo.WithTx(tx)
		catalogTx := s.catalogRepo.WithTx(tx)
		paymentsTx := s.paymentRepo.WithTx(tx)

		if err := ordersTx.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
			return err
		}

		for _, item := range order.Items {
			if err := catalogTx.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			if err := catalogTx.Reactivate(ctx, item.ProductID); err != nil {
				return err
			}
		}

		if order.Payment != nil && order.Payment.Status == enums.PaymentStatusCompleted {
			if err := paymentsTx.UpdateStatus(ctx, order.Payment.ID, enums.PaymentStatusRefunded, time.Now()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling order")
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	s.logg.Info(ctx, "order cancelled")

	refreshed, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading order")
	}
	return ToOrderDTO(refreshed), nil
}

// AdvanceStatus moves an order along the fulfilment chain. Used by back
// office tooling rather than customers.
func (s *service) AdvanceStatus(ctx context.Context, orderNumber string, next enums.OrderStatus) (*OrderDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", order.Status, next))
	}

	if err := s.repo.UpdateStatus(ctx, order.ID, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}

	order.Status = next
	return ToOrderDTO(order), nil
}

func (s *service) loadOwnedOrder(ctx context.Context, customerID uuid.UUID, orderNumber string) (*models.Order, error) {
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
