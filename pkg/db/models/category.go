package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a node in the part-category tree. Root categories carry a nil
// ParentID.
type Category struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	Name        string     `gorm:"column:name;not null"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex"`
	Description *string    `gorm:"column:description"`
	Children    []Category `gorm:"foreignKey:ParentID"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
