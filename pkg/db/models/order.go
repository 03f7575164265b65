package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recicar/marketplace-backend/pkg/enums"
)

// Order is the immutable record materialized from a cart at checkout.
// Totals are snapshotted at creation and never recomputed.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber    string            `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID     uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	Status         enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Subtotal       decimal.Decimal   `gorm:"column:subtotal;type:numeric(10,2);not null"`
	TaxAmount      decimal.Decimal   `gorm:"column:tax_amount;type:numeric(10,2);not null"`
	ShippingAmount decimal.Decimal   `gorm:"column:shipping_amount;type:numeric(10,2);not null"`
	TotalAmount    decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Items          []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment        *Payment          `gorm:"foreignKey:OrderID"`
	ShippingInfo   *ShippingInfo     `gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
