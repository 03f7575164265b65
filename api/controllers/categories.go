package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/recicar/marketplace-backend/api/responses"
	"github.com/recicar/marketplace-backend/api/validators"
	categoriessvc "github.com/recicar/marketplace-backend/internal/categories"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

// CategoryTree returns the full nested category navigation.
func CategoryTree(svc categoriessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tree, err := svc.ListTree(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tree)
	}
}

// CategoryProducts pages through the listings under a category subtree.
func CategoryProducts(svc categoriessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "category slug is required"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListProductsBySlug(r.Context(), slug, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
