package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jask/moneywiz-analytics/internal/domain"
	"github.com/jask/moneywiz-analytics/internal/logger"
	"github.com/jask/moneywiz-analytics/internal/money"
)

const (
	projectionMonths   = 3
	maxSuggestions     = 3
	categoryInsightCap = 2
)

// TrendService analyses how spending and income move month to month.
type TrendService struct {
	transactions *TransactionService
	search       *CategorySearch
	workers      int
	loc          *time.Location
	now          func() time.Time
}

// TrendOptions configures a TrendService.
type TrendOptions struct {
	Workers  int
	Location *time.Location
	Now      func() time.Time
}

func NewTrendService(transactions *TransactionService, search *CategorySearch, opts TrendOptions) *TrendService {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TrendService{
		transactions: transactions,
		search:       search,
		workers:      opts.Workers,
		loc:          opts.Location,
		now:          opts.Now,
	}
}

// MonthlySpending is one month of a spending trend.
type MonthlySpending struct {
	Month   string  `json:"month"`
	Total   float64 `json:"total_expenses"`
	Count   int     `json:"transaction_count"`
	Average float64 `json:"average_transaction"`
}

// SpendingTrend is the month-by-month spending of one currency.
type SpendingTrend struct {
	Range       domain.DateRange  `json:"range"`
	Category    string            `json:"category,omitempty"`
	Currency    string            `json:"currency"`
	Monthly     []MonthlySpending `json:"monthly"`
	Metrics     TrendMetrics      `json:"statistics"`
	Insights    []Insight         `json:"insights"`
	Projections []Projection      `json:"projections"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

// SpendingTrends analyses the last months of expenses. A non-empty category
// restricts the totals to leaf categories containing it, ignoring case; when
// nothing matches, close category names are suggested.
func (s *TrendService) SpendingTrends(ctx context.Context, months int, category string) (SpendingTrend, error) {
	if months <= 0 {
		return SpendingTrend{}, fmt.Errorf("months must be positive, got %d", months)
	}
	now := s.now()
	r := domain.LastMonths(months, now)
	expenses, err := s.transactions.Expenses(ctx, r)
	if err != nil {
		return SpendingTrend{}, err
	}

	trend := s.spendingTrend(expenses, category, expensePrimaryCurrency(expenses), now)
	trend.Range = r
	if category != "" && !anyCategoryMatch(expenses, category) {
		if trend.Suggestions, err = s.search.Suggest(ctx, category, maxSuggestions); err != nil {
			lg := logger.FromContext(ctx)
			lg.Warn().Err(err).Str("category", category).Msg("category suggestions failed")
		}
	}
	lg := logger.FromContext(ctx)
	lg.Info().Int("months", months).Str("category", category).Str("direction", string(trend.Metrics.Direction)).Msg("spending trends analysed")
	return trend, nil
}

func expensePrimaryCurrency(expenses []domain.Transaction) string {
	totals := money.Amounts{}
	for _, t := range expenses {
		totals = totals.Plus(t.Currency, t.Amount.Abs())
	}
	return totals.PrimaryCurrency()
}

func categoryMatch(t domain.Transaction, category string) bool {
	return t.Category != "" && strings.Contains(strings.ToLower(t.Category), strings.ToLower(category))
}

func anyCategoryMatch(txs []domain.Transaction, category string) bool {
	for _, t := range txs {
		if categoryMatch(t, category) {
			return true
		}
	}
	return false
}

// spendingTrend buckets expenses in currency by month. With a category, every
// month that had any expense is kept so gaps count as zero spending.
func (s *TrendService) spendingTrend(expenses []domain.Transaction, category, currency string, now time.Time) SpendingTrend {
	var inCurrency []domain.Transaction
	for _, t := range expenses {
		if strings.EqualFold(t.Currency, currency) {
			inCurrency = append(inCurrency, t)
		}
	}
	groups := domain.GroupByMonth(inCurrency, s.loc)

	trend := SpendingTrend{Category: category, Currency: currency}
	values := make([]float64, 0, len(groups))
	for _, month := range domain.SortedMonths(groups) {
		txs := groups[month]
		if category != "" {
			var matched []domain.Transaction
			for _, t := range txs {
				if categoryMatch(t, category) {
					matched = append(matched, t)
				}
			}
			txs = matched
		}
		agg := domain.Aggregate(month, txs)
		total := agg.Total.InexactFloat64()
		values = append(values, total)
		trend.Monthly = append(trend.Monthly, MonthlySpending{
			Month:   month,
			Total:   total,
			Count:   agg.Count,
			Average: agg.Average.InexactFloat64(),
		})
	}
	trend.Metrics = CalculateTrendMetrics(values)
	trend.Insights = SpendingInsights(trend.Metrics)
	trend.Projections = trend.Metrics.Project(now.In(s.loc), projectionMonths)
	return trend
}

// CategoryTrend is the trend of one top spending category.
type CategoryTrend struct {
	Category       string          `json:"category"`
	Total          decimal.Decimal `json:"total_spent"`
	Percentage     decimal.Decimal `json:"percentage_of_total"`
	Direction      Direction       `json:"trend"`
	GrowthRate     float64         `json:"growth_rate"`
	MonthlyAverage float64         `json:"monthly_average"`
	Insights       []Insight       `json:"insights"`
}

// CategoryTrends is the per-category view of spending trends.
type CategoryTrends struct {
	Range      domain.DateRange `json:"range"`
	Currency   string           `json:"currency"`
	Categories []CategoryTrend  `json:"category_trends"`
	Insights   []Insight        `json:"overall_insights"`
}

// CategoryTrends analyses the topN expense categories of the period.
func (s *TrendService) CategoryTrends(ctx context.Context, months, topN int) (CategoryTrends, error) {
	if months <= 0 || topN <= 0 {
		return CategoryTrends{}, fmt.Errorf("months and top must be positive, got %d and %d", months, topN)
	}
	now := s.now()
	r := domain.LastMonths(months, now)
	expenses, err := s.transactions.Expenses(ctx, r)
	if err != nil {
		return CategoryTrends{}, err
	}
	currency := expensePrimaryCurrency(expenses)
	_, groups := breakdown(expenses, groupKey(GroupByCategory))

	out := CategoryTrends{Range: r, Currency: currency}
	var growth []CategoryGrowth
	for _, g := range groups {
		if len(out.Categories) == topN {
			break
		}
		if g.Totals.Get(currency).IsZero() {
			continue
		}
		trend := s.spendingTrend(expenses, g.Name, currency, now)
		insights := trend.Insights
		if len(insights) > categoryInsightCap {
			insights = insights[:categoryInsightCap]
		}
		out.Categories = append(out.Categories, CategoryTrend{
			Category:       g.Name,
			Total:          g.Totals.Get(currency),
			Percentage:     g.PercentWithinCurrency[currency],
			Direction:      trend.Metrics.Direction,
			GrowthRate:     trend.Metrics.GrowthRate,
			MonthlyAverage: trend.Metrics.Average,
			Insights:       insights,
		})
		growth = append(growth, CategoryGrowth{Category: g.Name, GrowthRate: trend.Metrics.GrowthRate, Direction: trend.Metrics.Direction})
	}
	out.Insights = CategoryComparisonInsights(growth)
	return out, nil
}

// MonthlyFinancials is one month of income against expenses in that month's
// primary currency.
type MonthlyFinancials struct {
	Month       string  `json:"month"`
	Currency    string  `json:"currency"`
	Income      float64 `json:"income"`
	Expenses    float64 `json:"expenses"`
	NetSavings  float64 `json:"net_savings"`
	SavingsRate float64 `json:"savings_rate"`
}

// IncomeExpenseTrend tracks income, expenses and savings rate over time.
type IncomeExpenseTrend struct {
	Range       domain.DateRange    `json:"range"`
	Monthly     []MonthlyFinancials `json:"monthly"`
	Income      TrendMetrics        `json:"income"`
	Expenses    TrendMetrics        `json:"expenses"`
	SavingsRate TrendMetrics        `json:"savings_rate"`
	Improving   bool                `json:"savings_improving"`
	Insights    []Insight           `json:"insights"`
}

// IncomeExpenseTrends evaluates each of the last months as its own window,
// at most Workers at a time, and reports the months oldest first.
func (s *TrendService) IncomeExpenseTrends(ctx context.Context, months int) (IncomeExpenseTrend, error) {
	if months <= 0 {
		return IncomeExpenseTrend{}, fmt.Errorf("months must be positive, got %d", months)
	}
	now := s.now()
	monthly := make([]MonthlyFinancials, months)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := 0; i < months; i++ {
		i := i
		end := now.AddDate(0, -i, 0)
		window := domain.DateRange{Start: end.AddDate(0, -1, 0), End: end}
		g.Go(func() error {
			res, err := s.transactions.IncomeVsExpense(gctx, window)
			if err != nil {
				return fmt.Errorf("month ending %s: %w", end.Format(time.DateOnly), err)
			}
			code := res.PrimaryCurrency
			monthly[months-1-i] = MonthlyFinancials{
				Month:       domain.MonthLabel(end, s.loc),
				Currency:    code,
				Income:      res.Income.Get(code).InexactFloat64(),
				Expenses:    res.Expenses.Get(code).InexactFloat64(),
				NetSavings:  res.NetSavings.Get(code).InexactFloat64(),
				SavingsRate: res.SavingsRate[code].InexactFloat64(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return IncomeExpenseTrend{}, err
	}

	series := func(pick func(MonthlyFinancials) float64) []float64 {
		out := make([]float64, len(monthly))
		for i, m := range monthly {
			out[i] = pick(m)
		}
		return out
	}
	out := IncomeExpenseTrend{
		Range:       domain.LastMonths(months, now),
		Monthly:     monthly,
		Income:      CalculateTrendMetrics(series(func(m MonthlyFinancials) float64 { return m.Income })),
		Expenses:    CalculateTrendMetrics(series(func(m MonthlyFinancials) float64 { return m.Expenses })),
		SavingsRate: CalculateTrendMetrics(series(func(m MonthlyFinancials) float64 { return m.SavingsRate })),
	}
	out.Improving = out.SavingsRate.Direction == DirectionIncreasing
	out.Insights = IncomeExpenseInsights(out.Income, out.Expenses, out.SavingsRate)
	return out, nil
}
