package models

import (
	"time"

	"github.com/google/uuid"
)

// VehicleCompatibility declares one make/model/year-range a product fits.
// A product with no rows is treated as universal fit.
type VehicleCompatibility struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Make      string    `gorm:"column:make;not null"`
	Model     string    `gorm:"column:model;not null"`
	YearFrom  int       `gorm:"column:year_from;not null"`
	YearTo    int       `gorm:"column:year_to;not null"`
	Engine    *string   `gorm:"column:engine"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
