package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/moneywiz-analytics/internal/domain"
	"github.com/jask/moneywiz-analytics/internal/money"
	"github.com/jask/moneywiz-analytics/internal/service"
)

func TestAccountsJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := New(&buf, true).Accounts([]service.AccountSummary{
		{ID: 7, Name: "Checking", Type: service.AccountChecking, Currency: "USD", Balance: decimal.RequireFromString("12.50")},
	})
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "Checking", got[0]["name"])
	require.Equal(t, "checking", got[0]["type"])
	require.Equal(t, "12.5", got[0]["balance"])
}

func TestTransactionsText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := New(&buf, false).Transactions([]domain.Transaction{{
		ID: 1, Date: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), Type: domain.TypeWithdraw,
		Amount: decimal.NewFromInt(-42), Currency: "USD", Description: "Groceries run",
		Category: "Groceries", CategoryPath: "Food ▶ Groceries",
	}})
	require.NoError(t, err)
	out := buf.String()
	require.Contains(t, out, "Transactions (1)")
	require.Contains(t, out, "2024-03-09")
	require.Contains(t, out, "Food ▶ Groceries")
	require.Contains(t, out, "-42.00 USD")
}

func TestTransactionsInvestmentDetails(t *testing.T) {
	t.Parallel()
	shares, price, fee := decimal.NewFromInt(10), decimal.RequireFromString("12.5"), decimal.NewFromInt(1)
	txs := []domain.Transaction{
		{ID: 1, Type: domain.TypeInvestmentBuy, Amount: decimal.NewFromInt(-126), Currency: "USD",
			Description: "ACME", NumberOfShares: &shares, PricePerShare: &price, Fee: &fee},
		{ID: 2, Type: domain.TypeWithdraw, Amount: decimal.NewFromInt(-5), Currency: "USD",
			Description: "Coffee", NumberOfShares: &shares},
	}

	var buf bytes.Buffer
	require.NoError(t, New(&buf, true).Transactions(txs))
	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "10", got[0]["shares"])
	require.Equal(t, "12.5", got[0]["price_per_share"])
	require.Equal(t, "1", got[0]["fee"])
	require.NotContains(t, got[1], "shares")

	require.Equal(t, "ACME (10 sh @ 12.50)", transactionView{Description: "ACME", Shares: &shares, PricePerShare: &price}.describe())
	require.Equal(t, "10 sh", transactionView{Shares: &shares}.describe())
	require.Equal(t, "Coffee", transactionView{Description: "Coffee"}.describe())
}

func TestEmptyTableShowsPlaceholder(t *testing.T) {
	t.Parallel()
	out := table([]column{{title: "Name", width: 8}}, nil)
	require.Contains(t, out, "(none)")
}

func TestTruncateAndPad(t *testing.T) {
	t.Parallel()
	require.Equal(t, "abc  ", padRight("abc", 5))
	require.Equal(t, "  abc", padLeft("abc", 5))
	require.Equal(t, "abcdefgh", padRight("abcdefgh", 5))
	require.Equal(t, "abcd…", truncate("abcdefgh", 5))
	require.Equal(t, "", truncate("abc", 0))
}

func TestAmounts(t *testing.T) {
	t.Parallel()
	require.Equal(t, "0.00", amounts(money.Amounts{}))
	a := money.MustFrom(map[string]float64{"USD": 10, "CRC": 2500.5})
	require.Equal(t, "2500.50 CRC, 10.00 USD", amounts(a))
	require.Equal(t, "33.3%", percent(decimal.RequireFromString("33.333")))
}

func TestSavingsJSONKeepsSections(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := New(&buf, true).Savings(service.SavingsReport{
		Currency: "USD",
		Recommendations: []service.Recommendation{{Type: "target_savings", Title: "Reach Target Savings Rate"}},
	})
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Contains(t, got, "current_state")
	require.Contains(t, got, "target_state")
	require.Len(t, got["recommendations"], 1)
}
