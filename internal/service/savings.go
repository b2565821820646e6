package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneywiz-analytics/internal/domain"
	"github.com/jask/moneywiz-analytics/internal/logger"
)

const (
	maxRecommendations   = 10
	topCategoryCount     = 5
	highShareThreshold   = 20
	concentrationCutoff  = 60
	fixedShareThreshold  = 50
	weekendSpikeFactor   = 1.2
	endOfMonthDay        = 16
	endOfMonthFactor     = 0.8
	daysPerAnalysisMonth = 30
)

var (
	highShareCut     = decimal.RequireFromString("0.15")
	discretionaryCut = decimal.RequireFromString("0.25")
	weekendCut       = decimal.RequireFromString("0.10")
	hundred          = decimal.NewFromInt(100)
)

var discretionaryCategories = map[string]bool{
	"entertainment": true,
	"dining out":    true,
	"shopping":      true,
	"hobbies":       true,
	"subscriptions": true,
}

var fixedKeywords = []string{"rent", "mortgage", "insurance", "loan payments", "utilities", "phone", "internet"}

// savingTips is checked in order; the first key contained in the category wins.
var savingTips = []struct {
	key  string
	tips []string
}{
	{"dining out", []string{"Cook more meals at home", "Use restaurant deals and happy hours", "Limit dining out to special occasions"}},
	{"entertainment", []string{"Look for free local events", "Use streaming services instead of cable", "Take advantage of matinee prices"}},
	{"shopping", []string{"Create a shopping list and stick to it", "Wait 24 hours before non-essential purchases", "Compare prices online before buying"}},
	{"groceries", []string{"Meal plan to reduce waste", "Buy generic brands", "Use coupons and store loyalty programs"}},
	{"transportation", []string{"Carpool or use public transit", "Combine errands to save gas", "Consider walking or biking for short trips"}},
}

var defaultTips = []string{"Review spending in this category", "Set a monthly budget limit"}

func tipsFor(category string) []string {
	lower := strings.ToLower(category)
	for _, t := range savingTips {
		if strings.Contains(lower, t.key) {
			return t.tips
		}
	}
	return defaultTips
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Recommendation is one actionable savings suggestion. Impact is a monthly
// amount in the report currency; zero when the effect cannot be estimated.
type Recommendation struct {
	Type            string          `json:"type"`
	Priority        Priority        `json:"priority"`
	Score           float64         `json:"priority_score"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Impact          decimal.Decimal `json:"impact"`
	Difficulty      string          `json:"difficulty"`
	Category        string          `json:"category,omitempty"`
	CurrentAmount   decimal.Decimal `json:"current_amount,omitempty"`
	SuggestedAmount decimal.Decimal `json:"suggested_amount,omitempty"`
	Tips            []string        `json:"tips,omitempty"`
}

type SavingsState struct {
	SavingsRate    decimal.Decimal `json:"savings_rate"`
	MonthlySavings decimal.Decimal `json:"monthly_savings"`
	Income         decimal.Decimal `json:"total_income"`
	Expenses       decimal.Decimal `json:"total_expenses"`
}

type SavingsTarget struct {
	TargetRate              decimal.Decimal `json:"target_savings_rate"`
	ProjectedRate           decimal.Decimal `json:"projected_savings_rate"`
	PotentialMonthlySavings decimal.Decimal `json:"potential_monthly_savings"`
	NeededReduction         decimal.Decimal `json:"needed_expense_reduction"`
}

type Concentration struct {
	Top3Percent  decimal.Decimal `json:"top_3_percentage"`
	Concentrated bool            `json:"is_concentrated"`
	Message      string          `json:"message"`
}

type FixedVariable struct {
	FixedPercent    decimal.Decimal `json:"fixed_percentage"`
	VariablePercent decimal.Decimal `json:"variable_percentage"`
}

// SpendingPattern compares daily spending on weekends with weekdays and the
// second half of the month with the first.
type SpendingPattern struct {
	WeekendDailyAverage decimal.Decimal `json:"weekend_daily_average"`
	WeekdayDailyAverage decimal.Decimal `json:"weekday_daily_average"`
	FirstHalfTotal      decimal.Decimal `json:"first_half_total"`
	SecondHalfTotal     decimal.Decimal `json:"second_half_total"`
	Detected            []string        `json:"patterns_detected"`
}

// SavingsReport holds recommendations for one period in a single currency.
type SavingsReport struct {
	Range           domain.DateRange `json:"range"`
	Currency        string           `json:"currency"`
	Current         SavingsState     `json:"current_state"`
	Target          SavingsTarget    `json:"target_state"`
	Recommendations []Recommendation `json:"recommendations"`
	Concentration   Concentration    `json:"category_analysis"`
	FixedVariable   FixedVariable    `json:"fixed_vs_variable"`
	Patterns        SpendingPattern  `json:"spending_patterns"`
}

type SavingsService struct {
	transactions *TransactionService
	loc          *time.Location
}

func NewSavingsService(transactions *TransactionService, loc *time.Location) *SavingsService {
	if loc == nil {
		loc = time.Local
	}
	return &SavingsService{transactions: transactions, loc: loc}
}

type categoryShare struct {
	name    string
	total   decimal.Decimal
	percent decimal.Decimal
}

// Recommendations analyses the period's income and expenses in its primary
// currency and suggests how to reach targetRate percent savings.
func (s *SavingsService) Recommendations(ctx context.Context, r domain.DateRange, targetRate float64) (SavingsReport, error) {
	if targetRate < 0 || targetRate > 100 {
		return SavingsReport{}, fmt.Errorf("target savings rate must be between 0 and 100, got %g", targetRate)
	}
	ie, expenses, err := s.transactions.incomeExpense(ctx, r)
	if err != nil {
		return SavingsReport{}, err
	}

	code := ie.PrimaryCurrency
	months := analysisMonths(r)
	income, spent := ie.Income.Get(code), ie.Expenses.Get(code)
	net := ie.NetSavings.Get(code)
	target := decimal.NewFromFloat(targetRate)

	out := SavingsReport{
		Range:    r,
		Currency: code,
		Current: SavingsState{
			SavingsRate:    ie.SavingsRate[code],
			MonthlySavings: net.Div(months),
			Income:         income,
			Expenses:       spent,
		},
	}

	shares := categoryShares(ie.ExpenseBreakdown, code)
	recs, potential := categoryRecommendations(shares, months)
	out.Concentration = concentration(shares)

	var fixedRec *Recommendation
	out.FixedVariable, fixedRec = fixedVsVariable(shares)
	if fixedRec != nil {
		recs = append(recs, *fixedRec)
	}

	var weekendRec *Recommendation
	out.Patterns, weekendRec = s.spendingPatterns(expenses, code, r, months)
	if weekendRec != nil {
		recs = append(recs, *weekendRec)
	}

	needed := neededReduction(income, spent, target).Div(months)
	if out.Current.SavingsRate.LessThan(target) {
		out.Target.NeededReduction = needed
		recs = append(recs, Recommendation{
			Type:     "target_savings",
			Priority: PriorityHigh,
			Score:    target.Sub(out.Current.SavingsRate).InexactFloat64(),
			Title:    "Reach Target Savings Rate",
			Description: fmt.Sprintf("To achieve your %s%% savings target, reduce expenses by %s %s/month",
				target.String(), needed.StringFixed(2), code),
			Impact:     needed,
			Difficulty: "medium",
		})
	}

	out.Target.TargetRate = target
	out.Target.PotentialMonthlySavings = potential
	if income.IsPositive() {
		out.Target.ProjectedRate = net.Add(potential.Mul(months)).Div(income).Mul(hundred)
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	out.Recommendations = recs

	lg := logger.FromContext(ctx)
	lg.Info().Str("currency", code).Int("recommendations", len(recs)).
		Str("savings_rate", out.Current.SavingsRate.StringFixed(1)).Msg("savings recommendations generated")
	return out, nil
}

// analysisMonths is the period length in 30-day months, never below one.
func analysisMonths(r domain.DateRange) decimal.Decimal {
	days := decimal.NewFromFloat(r.End.Sub(r.Start).Hours() / 24)
	m := days.Div(decimal.NewFromInt(daysPerAnalysisMonth))
	if m.LessThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return m
}

// neededReduction is how far expenses exceed what targetRate allows.
func neededReduction(income, expenses, targetRate decimal.Decimal) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	allowed := income.Mul(decimal.NewFromInt(1).Sub(targetRate.Div(hundred)))
	return decimal.Max(decimal.Zero, expenses.Sub(allowed))
}

func categoryShares(groups []AmountGroup, code string) []categoryShare {
	var out []categoryShare
	for _, g := range groups {
		total := g.Totals.Get(code)
		if !total.IsPositive() {
			continue
		}
		out = append(out, categoryShare{name: g.Name, total: total, percent: g.PercentWithinCurrency[code]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].total.GreaterThan(out[j].total) })
	return out
}

func categoryRecommendations(shares []categoryShare, months decimal.Decimal) ([]Recommendation, decimal.Decimal) {
	var recs []Recommendation
	potential := decimal.Zero
	for i, c := range shares {
		if i == topCategoryCount {
			break
		}
		monthly := c.total.Div(months)
		pct := c.percent.InexactFloat64()
		if pct > highShareThreshold {
			cut := monthly.Mul(highShareCut)
			recs = append(recs, Recommendation{
				Type:     "category_reduction",
				Priority: PriorityHigh,
				Score:    pct,
				Title:    fmt.Sprintf("Reduce %s Spending", c.name),
				Description: fmt.Sprintf("%s represents %s%% of your expenses. Consider reducing by 15%%.",
					c.name, c.percent.StringFixed(1)),
				Impact:          cut,
				Difficulty:      "medium",
				Category:        c.name,
				CurrentAmount:   monthly,
				SuggestedAmount: monthly.Sub(cut),
			})
			potential = potential.Add(cut)
		}
		if discretionaryCategories[strings.ToLower(c.name)] {
			cut := monthly.Mul(discretionaryCut)
			recs = append(recs, Recommendation{
				Type:     "discretionary_reduction",
				Priority: PriorityMedium,
				Score:    pct * 0.8,
				Title:    fmt.Sprintf("Optimize %s Spending", c.name),
				Description: fmt.Sprintf("Discretionary spending on %s could be reduced by 25%% without major lifestyle impact.",
					c.name),
				Impact:     cut,
				Difficulty: "easy",
				Category:   c.name,
				Tips:       tipsFor(c.name),
			})
			potential = potential.Add(cut)
		}
	}
	return recs, potential
}

func concentration(shares []categoryShare) Concentration {
	top := decimal.Zero
	for i, c := range shares {
		if i == 3 {
			break
		}
		top = top.Add(c.percent)
	}
	out := Concentration{Top3Percent: top, Message: "Your spending is well diversified"}
	if top.GreaterThan(decimal.NewFromInt(concentrationCutoff)) {
		out.Concentrated = true
		out.Message = "Your spending is highly concentrated"
	}
	return out
}

func fixedVsVariable(shares []categoryShare) (FixedVariable, *Recommendation) {
	fixed, total := decimal.Zero, decimal.Zero
	for _, c := range shares {
		total = total.Add(c.total)
		if containsAny(strings.ToLower(c.name), fixedKeywords) {
			fixed = fixed.Add(c.total)
		}
	}
	out := FixedVariable{}
	if total.IsPositive() {
		out.FixedPercent = fixed.Div(total).Mul(hundred)
	}
	out.VariablePercent = hundred.Sub(out.FixedPercent)
	if out.FixedPercent.LessThanOrEqual(decimal.NewFromInt(fixedShareThreshold)) {
		return out, nil
	}
	return out, &Recommendation{
		Type:     "fixed_expense_warning",
		Priority: PriorityHigh,
		Score:    out.FixedPercent.InexactFloat64() / 10,
		Title:    "High Fixed Expenses",
		Description: fmt.Sprintf("Your fixed expenses are %s%% of total. Consider negotiating or switching providers.",
			out.FixedPercent.StringFixed(1)),
		Difficulty: "medium",
		Tips: []string{
			"Review and negotiate insurance premiums",
			"Consider refinancing loans for better rates",
			"Switch to more affordable phone/internet plans",
			"Review subscription services",
		},
	}
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// spendingPatterns measures weekend against weekday daily spending over the
// calendar days of r, and late-month against early-month totals.
func (s *SavingsService) spendingPatterns(expenses []domain.Transaction, code string, r domain.DateRange, months decimal.Decimal) (SpendingPattern, *Recommendation) {
	var weekendDays, weekdays int64
	start, end := r.Start.In(s.loc), r.End.In(s.loc)
	for d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.loc); !d.After(end); d = d.AddDate(0, 0, 1) {
		if isWeekend(d) {
			weekendDays++
		} else {
			weekdays++
		}
	}

	weekend, weekday := decimal.Zero, decimal.Zero
	first, second := decimal.Zero, decimal.Zero
	for _, t := range expenses {
		if !strings.EqualFold(t.Currency, code) {
			continue
		}
		amount := t.Amount.Abs()
		local := t.Date.In(s.loc)
		if isWeekend(local) {
			weekend = weekend.Add(amount)
		} else {
			weekday = weekday.Add(amount)
		}
		if local.Day() >= endOfMonthDay {
			second = second.Add(amount)
		} else {
			first = first.Add(amount)
		}
	}

	out := SpendingPattern{FirstHalfTotal: first, SecondHalfTotal: second, Detected: []string{}}
	if weekendDays > 0 {
		out.WeekendDailyAverage = weekend.Div(decimal.NewFromInt(weekendDays))
	}
	if weekdays > 0 {
		out.WeekdayDailyAverage = weekday.Div(decimal.NewFromInt(weekdays))
	}
	if first.IsPositive() && second.LessThan(first.Mul(decimal.NewFromFloat(endOfMonthFactor))) {
		out.Detected = append(out.Detected, "end_of_month_reduction")
	}

	if !out.WeekendDailyAverage.IsPositive() ||
		out.WeekendDailyAverage.LessThanOrEqual(out.WeekdayDailyAverage.Mul(decimal.NewFromFloat(weekendSpikeFactor))) {
		return out, nil
	}
	out.Detected = append([]string{"weekend_spike"}, out.Detected...)
	return out, &Recommendation{
		Type:     "spending_pattern",
		Priority: PriorityMedium,
		Score:    5,
		Title:    "Track Weekend Spending",
		Description: fmt.Sprintf("You spend %s %s per weekend day against %s on weekdays. Consider setting weekend spending limits to reduce impulse purchases.",
			out.WeekendDailyAverage.StringFixed(2), code, out.WeekdayDailyAverage.StringFixed(2)),
		Impact:     weekend.Div(months).Mul(weekendCut),
		Difficulty: "easy",
		Tips:       []string{"Set a weekend budget", "Use cash for discretionary spending", "Plan activities in advance"},
	}
}
