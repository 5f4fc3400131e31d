package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPriceLine(t *testing.T) {
	line := PriceLine(decimal.RequireFromString("100"), decimal.RequireFromString("15"), 2)

	assert.Equal(t, "15.00", line.UnitTax.StringFixed(2))
	assert.Equal(t, "200.00", line.Subtotal.StringFixed(2))
	assert.Equal(t, "30.00", line.Tax.StringFixed(2))
	assert.Equal(t, "230.00", line.Total.StringFixed(2))
}

func TestPriceLineRoundsHalfUp(t *testing.T) {
	// 15% of 10.10 is 1.515; 15% of 30.30 is 4.545
	line := PriceLine(decimal.RequireFromString("10.10"), decimal.RequireFromString("15"), 3)

	assert.Equal(t, "1.52", line.UnitTax.StringFixed(2))
	assert.Equal(t, "30.30", line.Subtotal.StringFixed(2))
	assert.Equal(t, "4.55", line.Tax.StringFixed(2))
	assert.Equal(t, "34.85", line.Total.StringFixed(2))
}

func TestFee(t *testing.T) {
	assert.True(t, Fee(decimal.RequireFromString("5.50"), 0).IsZero())
	assert.Equal(t, "16.50", Fee(decimal.RequireFromString("5.50"), 3).StringFixed(2))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "L 7.50", Format(decimal.RequireFromString("7.5")))
}
