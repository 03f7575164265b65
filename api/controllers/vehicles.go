package controllers

import (
	"net/http"

	"github.com/recicar/marketplace-backend/api/responses"
	"github.com/recicar/marketplace-backend/api/validators"
	vehiclessvc "github.com/recicar/marketplace-backend/internal/vehicles"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

// VehicleMakes lists the manufacturers for the vehicle picker.
func VehicleMakes(svc vehiclessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		makes, err := svc.ListMakes(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, makes)
	}
}

// VehicleModels lists the model lines under one make.
func VehicleModels(svc vehiclessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		makeID, err := validators.ParseQueryUUID(r, "make_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if makeID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "make_id is required"))
			return
		}

		models, err := svc.ListModels(r.Context(), *makeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, models)
	}
}
