package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recicar/marketplace-backend/pkg/enums"
)

// Payment records the outcome of the charge attempt made for an order.
// A failed payment keeps the order around so the customer can retry or
// support can intervene.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Method        string              `gorm:"column:method;not null"`
	Provider      *string             `gorm:"column:provider"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Status        enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	TransactionID *string             `gorm:"column:transaction_id"`
	ProcessedAt   *time.Time          `gorm:"column:processed_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
