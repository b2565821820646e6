package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MonthLayout is the year-month label used for monthly buckets.
const MonthLayout = "2006-01"

// MonthlyAggregate summarises one month of transactions.
type MonthlyAggregate struct {
	Month   string
	Total   decimal.Decimal
	Count   int
	Average decimal.Decimal
}

// MonthLabel buckets t by year and month in loc.
func MonthLabel(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(MonthLayout)
}

// GroupByMonth buckets txs by month label, preserving input order inside a bucket.
func GroupByMonth(txs []Transaction, loc *time.Location) map[string][]Transaction {
	out := map[string][]Transaction{}
	for _, t := range txs {
		label := MonthLabel(t.Date, loc)
		out[label] = append(out[label], t)
	}
	return out
}

// SortedMonths returns the labels of groups in chronological order.
func SortedMonths(groups map[string][]Transaction) []string {
	months := make([]string, 0, len(groups))
	for m := range groups {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// Aggregate totals absolute amounts for one month.
func Aggregate(month string, txs []Transaction) MonthlyAggregate {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount.Abs())
	}
	agg := MonthlyAggregate{Month: month, Total: total, Count: len(txs), Average: decimal.Zero}
	if len(txs) > 0 {
		agg.Average = total.Div(decimal.NewFromInt(int64(len(txs))))
	}
	return agg
}

// MonthlyAggregates groups txs and aggregates every month, oldest first.
func MonthlyAggregates(txs []Transaction, loc *time.Location) []MonthlyAggregate {
	groups := GroupByMonth(txs, loc)
	out := make([]MonthlyAggregate, 0, len(groups))
	for _, m := range SortedMonths(groups) {
		out = append(out, Aggregate(m, groups[m]))
	}
	return out
}
