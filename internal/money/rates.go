package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ReferenceRates maps a currency code to the multiplier that converts one unit
// of it into the reference unit. The figures are approximations used only for
// coarse thresholds, never for reporting.
type ReferenceRates map[string]decimal.Decimal

// DefaultReferenceRates uses USD as the reference unit.
func DefaultReferenceRates() ReferenceRates {
	return ReferenceRates{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("1.1"),
		"CRC": decimal.RequireFromString("0.002"),
	}
}

// ReferenceRatesFrom parses a config map. Entries with an empty code or a
// non-positive rate are dropped.
func ReferenceRatesFrom(raw map[string]float64) ReferenceRates {
	out := make(ReferenceRates, len(raw))
	for code, rate := range raw {
		c, err := NormalizeCode(code)
		if err != nil || rate <= 0 {
			continue
		}
		out[c] = decimal.NewFromFloat(rate)
	}
	return out
}

// ToReference converts amount in code to the reference unit. Unknown or empty
// codes are treated as already being in the reference unit.
func (r ReferenceRates) ToReference(code string, amount decimal.Decimal) decimal.Decimal {
	if rate, ok := r[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return amount.Mul(rate)
	}
	return amount
}
