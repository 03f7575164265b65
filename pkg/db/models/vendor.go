package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/recicar/marketplace-backend/pkg/enums"
)

// Vendor is the seller profile attached one-to-one to a user account.
// New registrations start PENDING and cannot list products until approved.
type Vendor struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	BusinessName   string             `gorm:"column:business_name;not null;uniqueIndex"`
	TaxID          string             `gorm:"column:tax_id;not null;uniqueIndex"`
	Description    *string            `gorm:"column:description"`
	Status         enums.VendorStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	CommissionRate decimal.Decimal    `gorm:"column:commission_rate;type:numeric(5,2);not null;default:0"`
	Categories     pq.StringArray     `gorm:"column:categories;type:text[];not null;default:ARRAY[]::text[]"`
	AddressLine    *string            `gorm:"column:address_line"`
	City           *string            `gorm:"column:city"`
	Region         *string            `gorm:"column:region"`
	PostalCode     *string            `gorm:"column:postal_code"`
	User           *User              `gorm:"foreignKey:UserID"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
