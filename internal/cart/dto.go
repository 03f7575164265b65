package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recicar/marketplace-backend/pkg/db/models"
)

// ItemDTO is one cart line with the live listing snapshot alongside.
type ItemDTO struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	LineTotal     decimal.Decimal `json:"line_total"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	ImageURL      *string         `json:"image_url,omitempty"`
}

// CartDTO is the full basket view with the live subtotal.
type CartDTO struct {
	ID        uuid.UUID       `json:"id"`
	Items     []ItemDTO       `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Issue flags one cart line that can no longer be checked out as-is.
type Issue struct {
	ProductID uuid.UUID `json:"product_id"`
	Reason    string    `json:"reason"`
}

// QuoteDTO previews the checkout cost split for the current basket.
type QuoteDTO struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ToCartDTO maps a loaded cart into the read model. Prices always come from
// the live product rows.
func ToCartDTO(cart *models.Cart) *CartDTO {
	dto := &CartDTO{
		ID:       cart.ID,
		Items:    []ItemDTO{},
		Subtotal: decimal.Zero,
	}
	for _, item := range cart.Items {
		if item.Product == nil {
			continue
		}
		line := ItemDTO{
			ProductID:     item.ProductID,
			ProductName:   item.Product.Name,
			UnitPrice:     item.Product.Price,
			Quantity:      item.Quantity,
			LineTotal:     item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
			StockQuantity: item.Product.StockQuantity,
			IsActive:      item.Product.IsActive,
			ImageURL:      item.Product.ImageURL,
		}
		dto.Items = append(dto.Items, line)
		dto.ItemCount += item.Quantity
		dto.Subtotal = dto.Subtotal.Add(line.LineTotal)
	}
	return dto
}
