package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/recicar/marketplace-backend/pkg/config"
)

func defaultRates(t *testing.T) Rates {
	t.Helper()
	rates, err := ParseRates(config.RatesConfig{
		TaxRate:               "0",
		ShippingFlatFee:       "10.00",
		FreeShippingThreshold: "100.00",
		OrderShippingFee:      "0",
	})
	if err != nil {
		t.Fatalf("parse rates: %v", err)
	}
	return rates
}

func TestShippingStepFunction(t *testing.T) {
	rates := defaultRates(t)

	cases := []struct {
		subtotal string
		want     string
	}{
		{"0", "10"},
		{"50.00", "10"},
		{"99.99", "10"},
		{"100.00", "0"},
		{"250.75", "0"},
	}
	for _, tc := range cases {
		subtotal, _ := decimal.NewFromString(tc.subtotal)
		want, _ := decimal.NewFromString(tc.want)
		got := rates.ShippingFor(subtotal)
		if !got.Equal(want) {
			t.Fatalf("subtotal %s: expected shipping %s, got %s", tc.subtotal, want, got)
		}
	}
}

func TestTaxDefaultsToZero(t *testing.T) {
	rates := defaultRates(t)
	subtotal, _ := decimal.NewFromString("123.45")
	if !rates.TaxFor(subtotal).IsZero() {
		t.Fatal("expected zero tax with zero rate")
	}
}

func TestTaxRounding(t *testing.T) {
	rates, err := ParseRates(config.RatesConfig{
		TaxRate:               "0.0825",
		ShippingFlatFee:       "10.00",
		FreeShippingThreshold: "100.00",
		OrderShippingFee:      "0",
	})
	if err != nil {
		t.Fatalf("parse rates: %v", err)
	}
	subtotal, _ := decimal.NewFromString("19.99")
	want, _ := decimal.NewFromString("1.65")
	if got := rates.TaxFor(subtotal); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestOrderShippingDefaultsToZero(t *testing.T) {
	rates := defaultRates(t)
	subtotal, _ := decimal.NewFromString("42.00")
	if !rates.OrderShippingFor(subtotal).IsZero() {
		t.Fatal("expected zero order shipping with unset fee")
	}
}

func TestOrderShippingUsesConfiguredFee(t *testing.T) {
	rates, err := ParseRates(config.RatesConfig{
		TaxRate:               "0",
		ShippingFlatFee:       "10.00",
		FreeShippingThreshold: "100.00",
		OrderShippingFee:      "5.00",
	})
	if err != nil {
		t.Fatalf("parse rates: %v", err)
	}
	want, _ := decimal.NewFromString("5.00")
	for _, subtotal := range []string{"1.00", "250.00"} {
		s, _ := decimal.NewFromString(subtotal)
		if got := rates.OrderShippingFor(s); !got.Equal(want) {
			t.Fatalf("subtotal %s: expected order shipping %s, got %s", subtotal, want, got)
		}
	}
}

func TestParseRatesRejectsGarbage(t *testing.T) {
	_, err := ParseRates(config.RatesConfig{TaxRate: "abc", ShippingFlatFee: "10", FreeShippingThreshold: "100", OrderShippingFee: "0"})
	if err == nil {
		t.Fatal("expected parse error")
	}

	_, err = ParseRates(config.RatesConfig{TaxRate: "0", ShippingFlatFee: "-1", FreeShippingThreshold: "100", OrderShippingFee: "0"})
	if err == nil {
		t.Fatal("expected negative rate rejection")
	}

	_, err = ParseRates(config.RatesConfig{TaxRate: "0", ShippingFlatFee: "10", FreeShippingThreshold: "100", OrderShippingFee: "-2"})
	if err == nil {
		t.Fatal("expected negative order fee rejection")
	}
}
