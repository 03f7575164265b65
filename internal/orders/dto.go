package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
)

// ItemDTO is one snapshotted order line.
type ItemDTO struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// PaymentDTO exposes the payment outcome on order reads.
type PaymentDTO struct {
	Method        string              `json:"method"`
	Amount        decimal.Decimal     `json:"amount"`
	Status        enums.PaymentStatus `json:"status"`
	TransactionID *string             `json:"transaction_id,omitempty"`
	ProcessedAt   *time.Time          `json:"processed_at,omitempty"`
}

// ShippingDTO exposes the destination snapshot on order reads.
type ShippingDTO struct {
	RecipientName string  `json:"recipient_name"`
	AddressLine   string  `json:"address_line"`
	City          string  `json:"city"`
	Region        *string `json:"region,omitempty"`
	PostalCode    string  `json:"postal_code"`
	Country       string  `json:"country"`
	Phone         *string `json:"phone,omitempty"`
}

// OrderDTO is the customer-facing order view.
type OrderDTO struct {
	OrderNumber    string            `json:"order_number"`
	Status         enums.OrderStatus `json:"status"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	TaxAmount      decimal.Decimal   `json:"tax_amount"`
	ShippingAmount decimal.Decimal   `json:"shipping_amount"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	Items          []ItemDTO         `json:"items"`
	Payment        *PaymentDTO       `json:"payment,omitempty"`
	Shipping       *ShippingDTO      `json:"shipping,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ToOrderDTO maps the persistence model into the read model.
func ToOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		OrderNumber:    order.OrderNumber,
		Status:         order.Status,
		Subtotal:       order.Subtotal,
		TaxAmount:      order.TaxAmount,
		ShippingAmount: order.ShippingAmount,
		TotalAmount:    order.TotalAmount,
		Items:          []ItemDTO{},
		CreatedAt:      order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	if order.Payment != nil {
		dto.Payment = &PaymentDTO{
			Method:        order.Payment.Method,
			Amount:        order.Payment.Amount,
			Status:        order.Payment.Status,
			TransactionID: order.Payment.TransactionID,
			ProcessedAt:   order.Payment.ProcessedAt,
		}
	}
	if order.ShippingInfo != nil {
		dto.Shipping = &ShippingDTO{
			RecipientName: order.ShippingInfo.RecipientName,
			AddressLine:   order.ShippingInfo.AddressLine,
			City:          order.ShippingInfo.City,
			Region:        order.ShippingInfo.Region,
			PostalCode:    order.ShippingInfo.PostalCode,
			Country:       order.ShippingInfo.Country,
			Phone:         order.ShippingInfo.Phone,
		}
	}
	return dto
}

// ToOrderDTOs maps a slice of orders.
func ToOrderDTOs(orders []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, *ToOrderDTO(&orders[i]))
	}
	return out
}
