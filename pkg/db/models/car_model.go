package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CarMake is reference data used to drive the vehicle search dropdowns.
type CarMake struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string     `gorm:"column:name;not null;uniqueIndex"`
	Country   *string    `gorm:"column:country"`
	Models    []CarModel `gorm:"foreignKey:MakeID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// CarModel is one model line under a make, with its production window and
// the engine codes it shipped with.
type CarModel struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MakeID      uuid.UUID      `gorm:"column:make_id;type:uuid;not null;index"`
	Name        string         `gorm:"column:name;not null"`
	YearFrom    int            `gorm:"column:year_from;not null"`
	YearTo      *int           `gorm:"column:year_to"`
	EngineCodes pq.StringArray `gorm:"column:engine_codes;type:text[];not null;default:ARRAY[]::text[]"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
}
