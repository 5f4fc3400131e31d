// Package money holds the rounding rules for prices, taxes and fees.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to two decimals.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Line holds the computed amounts of one priced line.
type Line struct {
	UnitPrice decimal.Decimal
	UnitTax   decimal.Decimal
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
}

// PriceLine computes a line for quantity units at unitPrice taxed at taxPercent.
// Tax is taken on the rounded subtotal, not summed from unit taxes.
func PriceLine(unitPrice, taxPercent decimal.Decimal, quantity int) Line {
	qty := decimal.NewFromInt(int64(quantity))
	unitTax := Round2(unitPrice.Mul(taxPercent).Div(hundred))
	subtotal := Round2(unitPrice.Mul(qty))
	tax := Round2(subtotal.Mul(taxPercent).Div(hundred))
	return Line{
		UnitPrice: Round2(unitPrice),
		UnitTax:   unitTax,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal.Add(tax),
	}
}

// Fee multiplies a daily fee by a number of days.
func Fee(daily decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return Round2(daily.Mul(decimal.NewFromInt(int64(days))))
}

// Format renders an amount with two decimals, e.g. "L 150.00".
func Format(d decimal.Decimal) string {
	return fmt.Sprintf("L %s", d.StringFixed(2))
}
