package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recicar/marketplace-backend/api/responses"
	"github.com/recicar/marketplace-backend/api/validators"
	catalogsvc "github.com/recicar/marketplace-backend/internal/catalog"
	"github.com/recicar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

// ProductDetail serves the public product page.
func ProductDetail(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type compatibilityRequest struct {
	Make     string  `json:"make" validate:"required"`
	Model    string  `json:"model" validate:"required"`
	YearFrom int     `json:"year_from" validate:"required,min=1900"`
	YearTo   int     `json:"year_to" validate:"required,max=2030"`
	Engine   *string `json:"engine,omitempty"`
}

type createProductRequest struct {
	CategoryID      string                 `json:"category_id" validate:"required,uuid"`
	Name            string                 `json:"name" validate:"required"`
	Description     *string                `json:"description,omitempty"`
	Price           string                 `json:"price" validate:"required"`
	OldPrice        *string                `json:"old_price,omitempty"`
	PartNumber      *string                `json:"part_number,omitempty"`
	OEMNumber       *string                `json:"oem_number,omitempty"`
	Condition       string                 `json:"condition" validate:"required"`
	StockQuantity   int                    `json:"stock_quantity" validate:"min=0"`
	WeightKG        *string                `json:"weight_kg,omitempty"`
	ImageURL        *string                `json:"image_url,omitempty"`
	Compatibilities []compatibilityRequest `json:"compatibilities,omitempty"`
}

func (p createProductRequest) toCreateInput() (catalogsvc.CreateProductInput, error) {
	categoryID, err := uuid.Parse(p.CategoryID)
	if err != nil {
		return catalogsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(p.Price))
	if err != nil {
		return catalogsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	condition, err := enums.ParseProductCondition(strings.TrimSpace(p.Condition))
	if err != nil {
		return catalogsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition")
	}
	oldPrice, err := parseOptionalDecimal(p.OldPrice, "old_price")
	if err != nil {
		return catalogsvc.CreateProductInput{}, err
	}
	weight, err := parseOptionalDecimal(p.WeightKG, "weight_kg")
	if err != nil {
		return catalogsvc.CreateProductInput{}, err
	}

	return catalogsvc.CreateProductInput{
		CategoryID:      categoryID,
		Name:            strings.TrimSpace(p.Name),
		Description:     p.Description,
		Price:           price,
		OldPrice:        oldPrice,
		PartNumber:      p.PartNumber,
		OEMNumber:       p.OEMNumber,
		Condition:       condition,
		StockQuantity:   p.StockQuantity,
		WeightKG:        weight,
		ImageURL:        p.ImageURL,
		Compatibilities: toCompatibilityDTOs(p.Compatibilities),
	}, nil
}

// VendorCreateProduct adds a listing under the authenticated seller.
func VendorCreateProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := currentVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), vendorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	CategoryID      *string                 `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Name            *string                 `json:"name,omitempty"`
	Description     *string                 `json:"description,omitempty"`
	Price           *string                 `json:"price,omitempty"`
	OldPrice        *string                 `json:"old_price,omitempty"`
	PartNumber      *string                 `json:"part_number,omitempty"`
	OEMNumber       *string                 `json:"oem_number,omitempty"`
	Condition       *string                 `json:"condition,omitempty"`
	StockQuantity   *int                    `json:"stock_quantity,omitempty" validate:"omitempty,min=0"`
	WeightKG        *string                 `json:"weight_kg,omitempty"`
	IsActive        *bool                   `json:"is_active,omitempty"`
	ImageURL        *string                 `json:"image_url,omitempty"`
	Compatibilities *[]compatibilityRequest `json:"compatibilities,omitempty"`
}

func (p updateProductRequest) toUpdateInput() (catalogsvc.UpdateProductInput, error) {
	input := catalogsvc.UpdateProductInput{
		Name:          p.Name,
		Description:   p.Description,
		PartNumber:    p.PartNumber,
		OEMNumber:     p.OEMNumber,
		StockQuantity: p.StockQuantity,
		IsActive:      p.IsActive,
		ImageURL:      p.ImageURL,
	}

	if p.CategoryID != nil {
		categoryID, err := uuid.Parse(*p.CategoryID)
		if err != nil {
			return catalogsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id")
		}
		input.CategoryID = &categoryID
	}
	if p.Price != nil {
		price, err := decimal.NewFromString(strings.TrimSpace(*p.Price))
		if err != nil {
			return catalogsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
		}
		input.Price = &price
	}
	oldPrice, err := parseOptionalDecimal(p.OldPrice, "old_price")
	if err != nil {
		return catalogsvc.UpdateProductInput{}, err
	}
	input.OldPrice = oldPrice
	weight, err := parseOptionalDecimal(p.WeightKG, "weight_kg")
	if err != nil {
		return catalogsvc.UpdateProductInput{}, err
	}
	input.WeightKG = weight
	if p.Condition != nil {
		condition, err := enums.ParseProductCondition(strings.TrimSpace(*p.Condition))
		if err != nil {
			return catalogsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition")
		}
		input.Condition = &condition
	}
	if p.Compatibilities != nil {
		dtos := toCompatibilityDTOs(*p.Compatibilities)
		input.Compatibilities = &dtos
	}
	return input, nil
}

// VendorUpdateProduct applies a partial update to one of the seller's listings.
func VendorUpdateProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := currentVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), vendorID, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// VendorDeleteProduct removes one of the seller's listings.
func VendorDeleteProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := currentVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), vendorID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// VendorListProducts pages through the seller's own listings.
func VendorListProducts(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := currentVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListVendorProducts(r.Context(), vendorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// VendorLowStock lists the seller's listings running low.
func VendorLowStock(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := currentVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.ListLowStock(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func toCompatibilityDTOs(entries []compatibilityRequest) []catalogsvc.CompatibilityDTO {
	dtos := make([]catalogsvc.CompatibilityDTO, 0, len(entries))
	for _, c := range entries {
		dtos = append(dtos, catalogsvc.CompatibilityDTO{
			Make:     strings.TrimSpace(c.Make),
			Model:    strings.TrimSpace(c.Model),
			YearFrom: c.YearFrom,
			YearTo:   c.YearTo,
			Engine:   c.Engine,
		})
	}
	return dtos
}

func parseOptionalDecimal(raw *string, field string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	value, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid decimal value").WithDetails(map[string]any{"field": field})
	}
	return &value, nil
}
