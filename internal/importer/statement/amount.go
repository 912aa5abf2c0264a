package statement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount reads "1.234,56" and "-588,74" style amounts. Inputs without a
// comma are taken as plain decimals, so "12.50" stays twelve and a half.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	return decimal.NewFromString(s)
}
