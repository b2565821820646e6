// Package money holds multi-currency amounts. Amounts in different currencies
// are never converted into each other; every operation works per currency.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// FallbackCurrency is reported when no currency is known.
const FallbackCurrency = "USD"

var ErrInvalidCurrency = errors.New("invalid currency code")

var hundred = decimal.NewFromInt(100)

// Number lists the value types accepted by From.
type Number interface {
	int | int32 | int64 | float32 | float64 | decimal.Decimal
}

// Amounts maps upper-case currency codes to exact decimal amounts.
// The zero value is an empty, usable set.
type Amounts struct {
	m map[string]decimal.Decimal
}

// From builds Amounts from any numeric map. Codes are trimmed and upper-cased;
// codes that collide after normalisation are summed.
func From[T Number](values map[string]T) (Amounts, error) {
	out := make(map[string]decimal.Decimal, len(values))
	for code, v := range values {
		c, err := NormalizeCode(code)
		if err != nil {
			return Amounts{}, err
		}
		out[c] = out[c].Add(toDecimal(v))
	}
	return Amounts{m: out}, nil
}

// MustFrom is From for literals known to be valid.
func MustFrom[T Number](values map[string]T) Amounts {
	a, err := From(values)
	if err != nil {
		panic(err)
	}
	return a
}

// NormalizeCode validates and upper-cases a currency code.
func NormalizeCode(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return c, nil
}

func toDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case float64:
		return decimal.NewFromFloat(n)
	case float32:
		return decimal.NewFromFloat32(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt32(n)
	case int64:
		return decimal.NewFromInt(n)
	}
	return decimal.Zero
}

// Get returns the amount for code, or zero when absent.
func (a Amounts) Get(code string) decimal.Decimal {
	return a.GetOr(code, decimal.Zero)
}

// GetOr returns the amount for code, or def when absent.
func (a Amounts) GetOr(code string, def decimal.Decimal) decimal.Decimal {
	if v, ok := a.m[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return v
	}
	return def
}

// Currencies returns the codes in alphabetical order.
func (a Amounts) Currencies() []string {
	out := make([]string, 0, len(a.m))
	for c := range a.m {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (a Amounts) Len() int { return len(a.m) }

func (a Amounts) IsEmpty() bool { return len(a.m) == 0 }

// TotalActivity sums absolute values across currencies.
func (a Amounts) TotalActivity() decimal.Decimal {
	total := decimal.Zero
	for _, v := range a.m {
		total = total.Add(v.Abs())
	}
	return total
}

// PrimaryCurrency is the code with the largest absolute amount. Ties go to the
// alphabetically first code; an empty set reports FallbackCurrency.
func (a Amounts) PrimaryCurrency() string {
	best := ""
	var bestAbs decimal.Decimal
	for _, c := range a.Currencies() {
		abs := a.m[c].Abs()
		if best == "" || abs.GreaterThan(bestAbs) {
			best, bestAbs = c, abs
		}
	}
	if best == "" {
		return FallbackCurrency
	}
	return best
}

// Add returns the per-currency sum. Missing currencies count as zero.
func (a Amounts) Add(other Amounts) Amounts {
	return a.combine(other, decimal.Decimal.Add)
}

// Sub returns the per-currency difference. Missing currencies count as zero.
func (a Amounts) Sub(other Amounts) Amounts {
	return a.combine(other, decimal.Decimal.Sub)
}

// Plus returns a copy with amount added to code. Invalid codes leave a unchanged.
func (a Amounts) Plus(code string, amount decimal.Decimal) Amounts {
	c, err := NormalizeCode(code)
	if err != nil {
		return a
	}
	out := a.clone()
	out[c] = out[c].Add(amount)
	return Amounts{m: out}
}

func (a Amounts) combine(other Amounts, op func(decimal.Decimal, decimal.Decimal) decimal.Decimal) Amounts {
	out := make(map[string]decimal.Decimal, len(a.m)+len(other.m))
	for c, v := range a.m {
		out[c] = op(v, other.m[c])
	}
	for c, v := range other.m {
		if _, seen := a.m[c]; !seen {
			out[c] = op(decimal.Zero, v)
		}
	}
	return Amounts{m: out}
}

func (a Amounts) clone() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(a.m)+1)
	for c, v := range a.m {
		out[c] = v
	}
	return out
}

// CalculateRates returns a/base*100 per currency over the union of both sets.
// A currency whose base is zero, negative or missing gets a zero rate.
func (a Amounts) CalculateRates(base Amounts) map[string]decimal.Decimal {
	rates := make(map[string]decimal.Decimal, len(a.m)+len(base.m))
	for _, c := range a.Add(base).Currencies() {
		b := base.m[c]
		if !b.IsPositive() {
			rates[c] = decimal.Zero
			continue
		}
		rates[c] = a.m[c].Div(b).Mul(hundred)
	}
	return rates
}

// Equal compares the full per-currency maps by value, so 1.0 equals 1.
func (a Amounts) Equal(other Amounts) bool {
	if len(a.m) != len(other.m) {
		return false
	}
	for c, v := range a.m {
		o, ok := other.m[c]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Float64s converts every amount to float64. This is the only conversion out of
// exact decimals and exists for serialisation.
func (a Amounts) Float64s() map[string]float64 {
	out := make(map[string]float64, len(a.m))
	for c, v := range a.m {
		out[c] = v.InexactFloat64()
	}
	return out
}

func (a Amounts) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Float64s())
}

func (a Amounts) String() string {
	parts := make([]string, 0, len(a.m))
	for _, c := range a.Currencies() {
		parts = append(parts, c+": "+a.m[c].String())
	}
	return "Amounts{" + strings.Join(parts, ", ") + "}"
}
