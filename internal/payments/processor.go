package payments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recicar/marketplace-backend/pkg/enums"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

// Supported payment methods. Anything else fails the charge attempt.
const (
	MethodCreditCard = "credit_card"
	MethodPayPal     = "paypal"
)

// ChargeRequest describes one charge attempt for an order.
type ChargeRequest struct {
	OrderID     uuid.UUID
	OrderNumber string
	Method      string
	Amount      decimal.Decimal
}

// ChargeResult is the processor's verdict. A failed charge is a result, not
// an error; errors are reserved for infrastructure problems.
type ChargeResult struct {
	Status        enums.PaymentStatus
	TransactionID *string
	ProcessedAt   time.Time
}

// Processor settles charges for orders.
type Processor interface {
	Charge(ctx context.Context, req ChargeRequest) ChargeResult
}

// SimulatedProcessor approves known methods and declines everything else.
// It stands in for a real gateway integration.
type SimulatedProcessor struct {
	logg *logger.Logger
	now  func() time.Time
}

// NewSimulatedProcessor builds the in-process settlement stub.
func NewSimulatedProcessor(logg *logger.Logger) *SimulatedProcessor {
	return &SimulatedProcessor{logg: logg, now: time.Now}
}

// Charge settles the request synchronously.
func (p *SimulatedProcessor) Charge(ctx context.Context, req ChargeRequest) ChargeResult {
	processedAt := p.now()

	switch normalizeMethod(req.Method) {
	case MethodCreditCard, MethodPayPal:
		txID := uuid.NewString()
		if p.logg != nil {
			ctx = p.logg.WithFields(ctx, map[string]any{
				"order_number":   req.OrderNumber,
				"method":         normalizeMethod(req.Method),
				"amount":         req.Amount.StringFixed(2),
				"transaction_id": txID,
			})
			p.logg.Info(ctx, "payment completed")
		}
		return ChargeResult{
			Status:        enums.PaymentStatusCompleted,
			TransactionID: &txID,
			ProcessedAt:   processedAt,
		}
	default:
		if p.logg != nil {
			ctx = p.logg.WithFields(ctx, map[string]any{
				"order_number": req.OrderNumber,
				"method":       req.Method,
			})
			p.logg.Warn(ctx, "payment failed: unsupported method")
		}
		return ChargeResult{
			Status:      enums.PaymentStatusFailed,
			ProcessedAt: processedAt,
		}
	}
}

func normalizeMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
