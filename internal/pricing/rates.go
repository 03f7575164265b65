package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/recicar/marketplace-backend/pkg/config"
)

// Rates holds the pricing knobs parsed from configuration.
type Rates struct {
	TaxRate               decimal.Decimal
	ShippingFlatFee       decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	OrderShippingFee      decimal.Decimal
}

// ParseRates converts the string-based config values into decimals.
func ParseRates(cfg config.RatesConfig) (Rates, error) {
	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return Rates{}, fmt.Errorf("parsing tax rate %q: %w", cfg.TaxRate, err)
	}
	flatFee, err := decimal.NewFromString(cfg.ShippingFlatFee)
	if err != nil {
		return Rates{}, fmt.Errorf("parsing shipping flat fee %q: %w", cfg.ShippingFlatFee, err)
	}
	threshold, err := decimal.NewFromString(cfg.FreeShippingThreshold)
	if err != nil {
		return Rates{}, fmt.Errorf("parsing free shipping threshold %q: %w", cfg.FreeShippingThreshold, err)
	}
	orderFee, err := decimal.NewFromString(cfg.OrderShippingFee)
	if err != nil {
		return Rates{}, fmt.Errorf("parsing order shipping fee %q: %w", cfg.OrderShippingFee, err)
	}
	if taxRate.IsNegative() || flatFee.IsNegative() || threshold.IsNegative() || orderFee.IsNegative() {
		return Rates{}, fmt.Errorf("rates cannot be negative")
	}
	return Rates{
		TaxRate:               taxRate,
		ShippingFlatFee:       flatFee,
		FreeShippingThreshold: threshold,
		OrderShippingFee:      orderFee,
	}, nil
}

// ShippingFor returns the quoted shipping charge for a subtotal. Carts at or
// above the free-shipping threshold ship free, everything below pays the flat
// fee.
func (r Rates) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(r.FreeShippingThreshold) {
		return decimal.Zero
	}
	return r.ShippingFlatFee
}

// OrderShippingFor returns the shipping charge written on the order at
// checkout. Zero unless the fee is configured.
func (r Rates) OrderShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	return r.OrderShippingFee
}

// TaxFor returns the tax charge for a subtotal, rounded to cents.
func (r Rates) TaxFor(subtotal decimal.Decimal) decimal.Decimal {
	if r.TaxRate.IsZero() {
		return decimal.Zero
	}
	return subtotal.Mul(r.TaxRate).Round(2)
}
