package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFromNormalisesCodes(t *testing.T) {
	t.Parallel()
	a, err := From(map[string]float64{"usd": 10.5, " crc ": 5000})
	require.NoError(t, err)
	require.Equal(t, []string{"CRC", "USD"}, a.Currencies())
	require.True(t, a.Get("USD").Equal(dec("10.5")))
	require.True(t, a.Get("usd").Equal(dec("10.5")))
	require.True(t, a.Get("EUR").IsZero())
}

func TestFromRejectsEmptyCode(t *testing.T) {
	t.Parallel()
	_, err := From(map[string]int{"  ": 1})
	require.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestFromSumsCollidingCodes(t *testing.T) {
	t.Parallel()
	a, err := From(map[string]int64{"usd": 2, "USD": 3})
	require.NoError(t, err)
	require.Equal(t, 1, a.Len())
	require.True(t, a.Get("USD").Equal(dec("5")))
}

func TestFromFloatKeepsDecimalRepresentation(t *testing.T) {
	t.Parallel()
	a := MustFrom(map[string]float64{"USD": 0.1})
	b := MustFrom(map[string]float64{"USD": 0.2})
	require.True(t, a.Add(b).Get("USD").Equal(dec("0.3")))
}

func TestGetOr(t *testing.T) {
	t.Parallel()
	a := MustFrom(map[string]int{"USD": 1})
	require.True(t, a.GetOr("EUR", dec("7")).Equal(dec("7")))
	require.True(t, a.GetOr("USD", dec("7")).Equal(dec("1")))
}

func TestTotalActivity(t *testing.T) {
	t.Parallel()
	a := MustFrom(map[string]int{"USD": -100, "CRC": 50000})
	require.True(t, a.TotalActivity().Equal(dec("50100")))
	require.True(t, Amounts{}.TotalActivity().IsZero())
}

func TestPrimaryCurrency(t *testing.T) {
	t.Parallel()
	require.Equal(t, "CRC", MustFrom(map[string]int{"USD": 100, "CRC": -50000}).PrimaryCurrency())
	require.Equal(t, FallbackCurrency, Amounts{}.PrimaryCurrency())
	require.Equal(t, "EUR", MustFrom(map[string]int{"USD": 5, "EUR": -5}).PrimaryCurrency())
}

func TestAddSubUnion(t *testing.T) {
	t.Parallel()
	a := MustFrom(map[string]int{"USD": 10, "EUR": 3})
	b := MustFrom(map[string]int{"USD": 4, "CRC": 1000})

	sum := a.Add(b)
	require.Equal(t, []string{"CRC", "EUR", "USD"}, sum.Currencies())
	require.True(t, sum.Get("USD").Equal(dec("14")))
	require.True(t, sum.Get("CRC").Equal(dec("1000")))

	diff := a.Sub(b)
	require.True(t, diff.Get("USD").Equal(dec("6")))
	require.True(t, diff.Get("CRC").Equal(dec("-1000")))
	require.True(t, diff.Get("EUR").Equal(dec("3")))

	back := sum.Sub(b)
	for _, c := range a.Currencies() {
		require.True(t, back.Get(c).Equal(a.Get(c)), c)
	}
}

func TestOperationsDoNotMutate(t *testing.T) {
	t.Parallel()
	a := MustFrom(map[string]int{"USD": 1})
	_ = a.Add(MustFrom(map[string]int{"USD": 5}))
	_ = a.Plus("USD", dec("9"))
	require.True(t, a.Get("USD").Equal(dec("1")))
}

func TestPlus(t *testing.T) {
	t.Parallel()
	a := Amounts{}.Plus("usd", dec("2")).Plus("USD", dec("3")).Plus("", dec("100"))
	require.Equal(t, []string{"USD"}, a.Currencies())
	require.True(t, a.Get("USD").Equal(dec("5")))
}

func TestCalculateRates(t *testing.T) {
	t.Parallel()
	expenses := MustFrom(map[string]int{"USD": 250, "CRC": 10000})
	income := MustFrom(map[string]int{"USD": 1000, "EUR": 0})

	rates := expenses.CalculateRates(income)
	require.Len(t, rates, 3)
	require.True(t, rates["USD"].Equal(dec("25")))
	require.True(t, rates["CRC"].IsZero())
	require.True(t, rates["EUR"].IsZero())
}

func TestEqual(t *testing.T) {
	t.Parallel()
	a := MustFrom(map[string]decimal.Decimal{"USD": dec("1.0")})
	b := MustFrom(map[string]decimal.Decimal{"usd": dec("1")})
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(MustFrom(map[string]int{"USD": 1, "EUR": 0})))
	require.False(t, a.Equal(MustFrom(map[string]int{"USD": 2})))
	require.True(t, Amounts{}.Equal(Amounts{}))
}

func TestMarshalJSON(t *testing.T) {
	t.Parallel()
	a := MustFrom(map[string]float64{"USD": 12.34, "CRC": -500})
	raw, err := json.Marshal(a)
	require.NoError(t, err)

	var got map[string]float64
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, map[string]float64{"USD": 12.34, "CRC": -500}, got)
}

func TestString(t *testing.T) {
	t.Parallel()
	a := MustFrom(map[string]int{"USD": 3, "CRC": 1})
	require.Equal(t, "Amounts{CRC: 1, USD: 3}", a.String())
}

func TestReferenceRates(t *testing.T) {
	t.Parallel()
	r := DefaultReferenceRates()
	require.True(t, r.ToReference("crc", dec("500000")).Equal(dec("1000")))
	require.True(t, r.ToReference("EUR", dec("100")).Equal(dec("110")))
	require.True(t, r.ToReference("JPY", dec("42")).Equal(dec("42")))

	custom := ReferenceRatesFrom(map[string]float64{"gbp": 1.25, "bad": 0, "": 3})
	require.Len(t, custom, 1)
	require.True(t, custom.ToReference("GBP", dec("4")).Equal(dec("5")))
}
