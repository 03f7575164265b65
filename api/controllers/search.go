package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/recicar/marketplace-backend/api/responses"
	"github.com/recicar/marketplace-backend/api/validators"
	searchsvc "github.com/recicar/marketplace-backend/internal/search"
	"github.com/recicar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

// Search serves the storefront search box.
func Search(svc searchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseSearchFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Search(r.Context(), r.URL.Query().Get("q"), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProductList is the storefront browse endpoint: filters and paging, no term.
func ProductList(svc searchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseSearchFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Browse(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SearchByVehicle lists parts fitting a concrete make/model/year.
func SearchByVehicle(svc searchsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseSearchFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		year, err := validators.ParseQueryInt(r, "year", 0, 0, 2030)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vehicle := searchsvc.VehicleQuery{
			Make:   strings.TrimSpace(r.URL.Query().Get("make")),
			Model:  strings.TrimSpace(r.URL.Query().Get("model")),
			Engine: strings.TrimSpace(r.URL.Query().Get("engine")),
			Year:   year,
		}

		result, err := svc.SearchByVehicle(r.Context(), vehicle, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseSearchFilters(r *http.Request) (searchsvc.Filters, error) {
	filters := searchsvc.Filters{}

	for _, raw := range r.URL.Query()["category"] {
		for _, piece := range strings.Split(raw, ",") {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			id, err := uuid.Parse(piece)
			if err != nil {
				return searchsvc.Filters{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": "category"})
			}
			filters.CategoryIDs = append(filters.CategoryIDs, id)
		}
	}

	vendorID, err := validators.ParseQueryUUID(r, "vendor")
	if err != nil {
		return searchsvc.Filters{}, err
	}
	filters.VendorID = vendorID

	if raw := strings.TrimSpace(r.URL.Query().Get("condition")); raw != "" {
		condition, err := enums.ParseProductCondition(raw)
		if err != nil {
			return searchsvc.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition")
		}
		filters.Condition = &condition
	}

	minPrice, err := validators.ParseQueryDecimal(r, "min_price")
	if err != nil {
		return searchsvc.Filters{}, err
	}
	filters.MinPrice = minPrice

	maxPrice, err := validators.ParseQueryDecimal(r, "max_price")
	if err != nil {
		return searchsvc.Filters{}, err
	}
	filters.MaxPrice = maxPrice

	return filters, nil
}
