// Package currency formats decimal amounts for display.
package currency

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const Default = "INR"

// Valid reports whether code is a known ISO 4217 currency.
func Valid(code string) bool {
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// Format renders amount in code's notation, rounded to its minor unit.
// Unknown codes fall back to Default.
func Format(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	if !Valid(code) {
		code = Default
	}

	cur := money.GetCurrency(code)
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()

	return cur.Formatter().Format(minor)
}

// Compact renders whole units only, for space-constrained places like chart
// labels.
func Compact(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	if !Valid(code) {
		code = Default
	}

	cur := *money.GetCurrency(code)
	cur.Fraction = 0

	return cur.Formatter().Format(amount.Round(0).IntPart())
}
