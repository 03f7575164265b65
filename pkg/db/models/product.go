package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recicar/marketplace-backend/pkg/enums"
)

// Product represents a vendor's listing for a single part. Part and OEM
// numbers are nullable because salvage inventory is not always labeled.
type Product struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID        uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null;index"`
	CategoryID      uuid.UUID              `gorm:"column:category_id;type:uuid;not null;index"`
	Name            string                 `gorm:"column:name;not null"`
	Description     *string                `gorm:"column:description"`
	Price           decimal.Decimal        `gorm:"column:price;type:numeric(10,2);not null"`
	OldPrice        *decimal.Decimal       `gorm:"column:old_price;type:numeric(10,2)"`
	PartNumber      *string                `gorm:"column:part_number;index"`
	OEMNumber       *string                `gorm:"column:oem_number;index"`
	Condition       enums.ProductCondition `gorm:"column:condition;type:text;not null"`
	StockQuantity   int                    `gorm:"column:stock_quantity;not null;default:0"`
	WeightKG        *decimal.Decimal       `gorm:"column:weight_kg;type:numeric(8,3)"`
	// No default tag: gorm would skip a false zero value on insert and the
	// column default would silently reactivate the row.
	IsActive        bool                   `gorm:"column:is_active;not null"`
	ImageURL        *string                `gorm:"column:image_url"`
	Vendor          *Vendor                `gorm:"foreignKey:VendorID"`
	Category        *Category              `gorm:"foreignKey:CategoryID"`
	Compatibilities []VehicleCompatibility `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// InStock reports whether the listing can satisfy the requested quantity.
func (p Product) InStock(qty int) bool {
	return p.IsActive && p.StockQuantity >= qty
}
