package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product line inside a cart. Quantity is bounded 1..10 at
// the service layer; the row never stores a price because carts always read
// the live listing price.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index:idx_cart_items_cart_product,unique"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:idx_cart_items_cart_product,unique"`
	Quantity  int       `gorm:"column:quantity;not null"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
