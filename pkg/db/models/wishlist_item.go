package models

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem is a saved product on a customer's wishlist.
type WishlistItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:idx_wishlist_user_product,unique"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:idx_wishlist_user_product,unique"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
