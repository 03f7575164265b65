package vendors

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recicar/marketplace-backend/pkg/db/models"
	"github.com/recicar/marketplace-backend/pkg/enums"
)

// VendorDTO is the public shape of a seller profile.
type VendorDTO struct {
	ID             uuid.UUID          `json:"id"`
	UserID         uuid.UUID          `json:"user_id"`
	BusinessName   string             `json:"business_name"`
	TaxID          string             `json:"tax_id"`
	Description    *string            `json:"description,omitempty"`
	Status         enums.VendorStatus `json:"status"`
	CommissionRate decimal.Decimal    `json:"commission_rate"`
	Categories     []string           `json:"categories"`
	AddressLine    *string            `json:"address_line,omitempty"`
	City           *string            `json:"city,omitempty"`
	Region         *string            `json:"region,omitempty"`
	PostalCode     *string            `json:"postal_code,omitempty"`
	ContactEmail   string             `json:"contact_email,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

func ToVendorDTO(vendor *models.Vendor) *VendorDTO {
	dto := &VendorDTO{
		ID:             vendor.ID,
		UserID:         vendor.UserID,
		BusinessName:   vendor.BusinessName,
		TaxID:          vendor.TaxID,
		Description:    vendor.Description,
		Status:         vendor.Status,
		CommissionRate: vendor.CommissionRate,
		Categories:     []string(vendor.Categories),
		AddressLine:    vendor.AddressLine,
		City:           vendor.City,
		Region:         vendor.Region,
		PostalCode:     vendor.PostalCode,
		CreatedAt:      vendor.CreatedAt,
	}
	if dto.Categories == nil {
		dto.Categories = []string{}
	}
	if vendor.User != nil {
		dto.ContactEmail = vendor.User.Email
	}
	return dto
}

func ToVendorDTOs(vendors []models.Vendor) []VendorDTO {
	dtos := make([]VendorDTO, 0, len(vendors))
	for i := range vendors {
		dtos = append(dtos, *ToVendorDTO(&vendors[i]))
	}
	return dtos
}
