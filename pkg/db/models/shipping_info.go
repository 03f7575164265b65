package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingInfo holds the destination snapshot taken at checkout.
type ShippingInfo struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	RecipientName string    `gorm:"column:recipient_name;not null"`
	AddressLine   string    `gorm:"column:address_line;not null"`
	City          string    `gorm:"column:city;not null"`
	Region        *string   `gorm:"column:region"`
	PostalCode    string    `gorm:"column:postal_code;not null"`
	Country       string    `gorm:"column:country;not null"`
	Phone         *string   `gorm:"column:phone"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
