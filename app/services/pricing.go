package services

import (
	"fmt"

	"github.com/shashiranjanraj/kisanmart/config"
	"github.com/shopspring/decimal"
)

// Breakdown is the price summary of an order or cart.
type Breakdown struct {
	ItemsPrice    float64 `json:"itemsPrice"`
	TaxPrice      float64 `json:"taxPrice"`
	ShippingPrice float64 `json:"shippingPrice"`
	TotalPrice    float64 `json:"totalPrice"`
}

// PricedLine is one unit price and quantity.
type PricedLine struct {
	Price    float64
	Quantity int
}

// Pricing computes order totals from catalogue prices. Money is handled as
// decimal and rounded to paise at each step.
type Pricing struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	Tolerance             decimal.Decimal
}

// PricingFromConfig reads TAX_RATE, FREE_SHIPPING_THRESHOLD, SHIPPING_FEE
// and PRICE_TOLERANCE. Malformed values fall back to the defaults.
func PricingFromConfig() Pricing {
	return Pricing{
		TaxRate:               decimalOr(config.TaxRate(), "0.18"),
		FreeShippingThreshold: decimalOr(config.FreeShippingThreshold(), "1000"),
		ShippingFee:           decimalOr(config.ShippingFee(), "50"),
		Tolerance:             decimalOr(config.PriceTolerance(), "0.01"),
	}
}

func decimalOr(raw, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.RequireFromString(fallback)
	}
	return d
}

// Quote returns the breakdown for lines. Shipping is free only when the
// items total is strictly above the threshold. No lines quote to zero.
func (p Pricing) Quote(lines []PricedLine) Breakdown {
	if len(lines) == 0 {
		return Breakdown{}
	}
	items := decimal.Zero
	for _, l := range lines {
		items = items.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	items = items.Round(2)

	tax := items.Mul(p.TaxRate).Round(2)
	shipping := p.ShippingFee.Round(2)
	if items.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	total := items.Add(tax).Add(shipping)

	return Breakdown{
		ItemsPrice:    items.InexactFloat64(),
		TaxPrice:      tax.InexactFloat64(),
		ShippingPrice: shipping.InexactFloat64(),
		TotalPrice:    total.InexactFloat64(),
	}
}

// Check compares client-submitted figures with the server quote. Zero
// client values are treated as not submitted.
func (p Pricing) Check(client, server Breakdown) error {
	fields := []struct {
		name         string
		given, worth float64
	}{
		{"itemsPrice", client.ItemsPrice, server.ItemsPrice},
		{"taxPrice", client.TaxPrice, server.TaxPrice},
		{"shippingPrice", client.ShippingPrice, server.ShippingPrice},
		{"totalPrice", client.TotalPrice, server.TotalPrice},
	}
	for _, f := range fields {
		if f.given == 0 {
			continue
		}
		diff := decimal.NewFromFloat(f.given).Sub(decimal.NewFromFloat(f.worth)).Abs()
		if diff.GreaterThan(p.Tolerance) {
			return Invalid(fmt.Sprintf("Price mismatch on %s: expected %.2f, got %.2f", f.name, f.worth, f.given))
		}
	}
	return nil
}
