package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
)

// ProductDTO is the public read model for a listing.
type ProductDTO struct {
	ID              uuid.UUID              `json:"id"`
	VendorID        uuid.UUID              `json:"vendor_id"`
	VendorName      *string                `json:"vendor_name,omitempty"`
	CategoryID      uuid.UUID              `json:"category_id"`
	CategoryName    *string                `json:"category_name,omitempty"`
	Name            string                 `json:"name"`
	Description     *string                `json:"description,omitempty"`
	Price           decimal.Decimal        `json:"price"`
	OldPrice        *decimal.Decimal       `json:"old_price,omitempty"`
	PartNumber      *string                `json:"part_number,omitempty"`
	OEMNumber       *string                `json:"oem_number,omitempty"`
	Condition       enums.ProductCondition `json:"condition"`
	StockQuantity   int                    `json:"stock_quantity"`
	WeightKG        *decimal.Decimal       `json:"weight_kg,omitempty"`
	IsActive        bool                   `json:"is_active"`
	ImageURL        *string                `json:"image_url,omitempty"`
	Compatibilities []CompatibilityDTO     `json:"compatibilities,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// CompatibilityDTO is one make/model/year-range a product fits.
type CompatibilityDTO struct {
	Make     string  `json:"make"`
	Model    string  `json:"model"`
	YearFrom int     `json:"year_from"`
	YearTo   int     `json:"year_to"`
	Engine   *string `json:"engine,omitempty"`
}

// ToProductDTO maps the persistence model into the read model.
func ToProductDTO(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:            p.ID,
		VendorID:      p.VendorID,
		CategoryID:    p.CategoryID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		OldPrice:      p.OldPrice,
		PartNumber:    p.PartNumber,
		OEMNumber:     p.OEMNumber,
		Condition:     p.Condition,
		StockQuantity: p.StockQuantity,
		WeightKG:      p.WeightKG,
		IsActive:      p.IsActive,
		ImageURL:      p.ImageURL,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Vendor != nil {
		dto.VendorName = &p.Vendor.BusinessName
	}
	if p.Category != nil {
		dto.CategoryName = &p.Category.Name
	}
	for _, c := range p.Compatibilities {
		dto.Compatibilities = append(dto.Compatibilities, CompatibilityDTO{
			Make:     c.Make,
			Model:    c.Model,
			YearFrom: c.YearFrom,
			YearTo:   c.YearTo,
			Engine:   c.Engine,
		})
	}
	return dto
}

// ToProductDTOs maps a slice of products.
func ToProductDTOs(products []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, *ToProductDTO(&products[i]))
	}
	return out
}
