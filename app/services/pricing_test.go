package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteChargesShippingUpToThreshold(t *testing.T) {
	p := defaultPricing()

	got := p.Quote([]PricedLine{{Price: 250, Quantity: 2}})
	assert.Equal(t, Breakdown{ItemsPrice: 500, TaxPrice: 90, ShippingPrice: 50, TotalPrice: 640}, got)

	// exactly at the threshold still pays shipping
	got = p.Quote([]PricedLine{{Price: 500, Quantity: 2}})
	assert.Equal(t, 50.0, got.ShippingPrice)
	assert.Equal(t, 1230.0, got.TotalPrice)

	got = p.Quote([]PricedLine{{Price: 400.5, Quantity: 3}})
	assert.Equal(t, Breakdown{ItemsPrice: 1201.5, TaxPrice: 216.27, ShippingPrice: 0, TotalPrice: 1417.77}, got)
}

func TestQuoteRoundsToPaise(t *testing.T) {
	got := defaultPricing().Quote([]PricedLine{{Price: 99.99, Quantity: 3}, {Price: 0.1, Quantity: 1}})
	assert.Equal(t, 300.07, got.ItemsPrice)
	assert.Equal(t, 54.01, got.TaxPrice)
	assert.Equal(t, 404.08, got.TotalPrice)
}

func TestQuoteEmptyIsZero(t *testing.T) {
	assert.Equal(t, Breakdown{}, defaultPricing().Quote(nil))
}

func TestCheckAllowsToleranceAndSkipsZeroFields(t *testing.T) {
	p := defaultPricing()
	server := Breakdown{ItemsPrice: 500, TaxPrice: 90, ShippingPrice: 50, TotalPrice: 640}

	require.NoError(t, p.Check(Breakdown{TotalPrice: 640.01}, server))
	require.NoError(t, p.Check(Breakdown{}, server))
	require.NoError(t, p.Check(server, server))

	err := p.Check(Breakdown{ItemsPrice: 500, TaxPrice: 80, TotalPrice: 630}, server)
	requireKind(t, err, KindValidation, "Price mismatch on taxPrice: expected 90.00, got 80.00")
}

func TestPricingFromConfigFallsBackOnGarbage(t *testing.T) {
	assert.True(t, decimalOr("abc", "0.18").Equal(defaultPricing().TaxRate))
	assert.True(t, decimalOr("-5", "50").Equal(defaultPricing().ShippingFee))
}
