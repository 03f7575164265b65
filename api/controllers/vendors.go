package controllers

import (
	"net/http"
	"strings"

	"github.com/recicar/marketplace-backend/api/responses"
	"github.com/recicar/marketplace-backend/api/validators"
	vendorssvc "github.com/recicar/marketplace-backend/internal/vendors"
	"github.com/recicar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

type vendorRegisterRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password" validate:"required,min=8"`
	FirstName    string   `json:"first_name" validate:"required"`
	LastName     string   `json:"last_name" validate:"required"`
	Phone        *string  `json:"phone,omitempty"`
	BusinessName string   `json:"business_name" validate:"required"`
	TaxID        string   `json:"tax_id" validate:"required"`
	Description  *string  `json:"description,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	AddressLine  *string  `json:"address_line,omitempty"`
	City         *string  `json:"city,omitempty"`
	Region       *string  `json:"region,omitempty"`
	PostalCode   *string  `json:"postal_code,omitempty"`
}

// VendorRegister files a seller application. The account starts PENDING.
func VendorRegister(svc vendorssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload vendorRegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.Register(r.Context(), vendorssvc.RegisterInput{
			Email:        payload.Email,
			Password:     payload.Password,
			FirstName:    payload.FirstName,
			LastName:     payload.LastName,
			Phone:        payload.Phone,
			BusinessName: payload.BusinessName,
			TaxID:        payload.TaxID,
			Description:  payload.Description,
			Categories:   payload.Categories,
			AddressLine:  payload.AddressLine,
			City:         payload.City,
			Region:       payload.Region,
			PostalCode:   payload.PostalCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, vendor)
	}
}

// VendorProfile returns the authenticated seller's own profile.
func VendorProfile(svc vendorssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := currentVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.GetVendor(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}

// AdminVendorList pages vendors by status, oldest application first.
func AdminVendorList(svc vendorssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw := strings.TrimSpace(r.URL.Query().Get("status"))
		if raw == "" {
			raw = string(enums.VendorStatusPending)
		}
		status, err := enums.ParseVendorStatus(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor status"))
			return
		}

		page, err := svc.ListByStatus(r.Context(), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminVendorApprove approves a pending or suspended seller.
func AdminVendorApprove(svc vendorssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := validators.ParseUUIDParam(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.Approve(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}

// AdminVendorSuspend pulls an approved seller off the storefront.
func AdminVendorSuspend(svc vendorssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := validators.ParseUUIDParam(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.Suspend(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}
