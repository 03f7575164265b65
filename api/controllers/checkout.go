package controllers

import (
	"net/http"

	"github.com/recicar/marketplace-backend/api/responses"
	"github.com/recicar/marketplace-backend/api/validators"
	checkoutsvc "github.com/recicar/marketplace-backend/internal/checkout"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

type shippingRequest struct {
	RecipientName string  `json:"recipient_name" validate:"required"`
	AddressLine   string  `json:"address_line" validate:"required"`
	City          string  `json:"city" validate:"required"`
	Region        *string `json:"region,omitempty"`
	PostalCode    string  `json:"postal_code" validate:"required"`
	Country       string  `json:"country" validate:"required"`
	Phone         *string `json:"phone,omitempty"`
}

type checkoutRequest struct {
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Shipping      shippingRequest `json:"shipping" validate:"required"`
}

// Checkout turns the cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Checkout(r.Context(), userID, checkoutsvc.Input{
			PaymentMethod: payload.PaymentMethod,
			Shipping: checkoutsvc.ShippingInput{
				RecipientName: payload.Shipping.RecipientName,
				AddressLine:   payload.Shipping.AddressLine,
				City:          payload.Shipping.City,
				Region:        payload.Shipping.Region,
				PostalCode:    payload.Shipping.PostalCode,
				Country:       payload.Shipping.Country,
				Phone:         payload.Shipping.Phone,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
