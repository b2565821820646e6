package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jask/moneywiz-analytics/internal/domain"
)

type Direction string

const (
	DirectionStable       Direction = "stable"
	DirectionIncreasing   Direction = "increasing"
	DirectionDecreasing   Direction = "decreasing"
	DirectionInsufficient Direction = "insufficient_data"
)

type Strength string

const (
	StrengthNone     Strength = "none"
	StrengthWeak     Strength = "weak"
	StrengthModerate Strength = "moderate"
	StrengthStrong   Strength = "strong"
)

type Stability string

const (
	StabilityStable   Stability = "stable"
	StabilityModerate Stability = "moderate"
	StabilityVolatile Stability = "volatile"
)

const (
	minTrendPoints       = 3
	stableGrowthPercent  = 2
	strongGrowthPercent  = 10
	stableCVPercent      = 20
	volatileCVPercent    = 50
	variabilityCVPercent = 30
)

// TrendMetrics describes a series of monthly totals.
type TrendMetrics struct {
	Average    float64   `json:"average"`
	Median     float64   `json:"median"`
	StdDev     float64   `json:"std_dev"`
	Direction  Direction `json:"direction"`
	Strength   Strength  `json:"strength"`
	GrowthRate float64   `json:"growth_rate"`
	Stability  Stability `json:"stability"`
}

// CalculateTrendMetrics fits a least-squares line over values (oldest first)
// and labels its growth and spread. Fewer than three points give
// DirectionInsufficient.
func CalculateTrendMetrics(values []float64) TrendMetrics {
	if len(values) == 0 {
		return TrendMetrics{Direction: DirectionStable, Strength: StrengthNone, Stability: StabilityStable}
	}

	m := TrendMetrics{
		Average: mean(values),
		Median:  median(values),
		StdDev:  sampleStdDev(values),
	}

	switch slope, ok := regressionSlope(values); {
	case len(values) < minTrendPoints:
		m.Direction, m.Strength = DirectionInsufficient, StrengthNone
	case !ok:
		m.Direction, m.Strength = DirectionStable, StrengthNone
	default:
		if m.Average > 0 {
			m.GrowthRate = slope / m.Average * 100
		}
		switch {
		case math.Abs(m.GrowthRate) < stableGrowthPercent:
			m.Direction, m.Strength = DirectionStable, StrengthWeak
		case m.GrowthRate > 0:
			m.Direction, m.Strength = DirectionIncreasing, StrengthModerate
		default:
			m.Direction, m.Strength = DirectionDecreasing, StrengthModerate
		}
		if math.Abs(m.GrowthRate) > strongGrowthPercent {
			m.Strength = StrengthStrong
		}
	}

	cv := m.CoefficientOfVariation()
	switch {
	case cv < stableCVPercent:
		m.Stability = StabilityStable
	case cv > volatileCVPercent:
		m.Stability = StabilityVolatile
	default:
		m.Stability = StabilityModerate
	}
	return m
}

// CoefficientOfVariation is StdDev as a percentage of Average, 0 when the
// average is not positive.
func (m TrendMetrics) CoefficientOfVariation() float64 {
	if m.Average <= 0 {
		return 0
	}
	return m.StdDev / m.Average * 100
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := mean(values)
	var ss float64
	for _, v := range values {
		ss += (v - avg) * (v - avg)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// regressionSlope fits y against the index 0..n-1.
func regressionSlope(points []float64) (float64, bool) {
	n := float64(len(points))
	if n < 2 {
		return 0, false
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range points {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	return (n*sumXY - sumX*sumY) / denom, true
}

// Projection is an expected monthly total.
type Projection struct {
	Month      string  `json:"month"`
	Amount     float64 `json:"projected_amount"`
	Confidence string  `json:"confidence"`
}

// Project compounds the average by the growth rate for each of the
// monthsAhead months after from. Insufficient data yields nothing.
func (m TrendMetrics) Project(from time.Time, monthsAhead int) []Projection {
	if m.Direction == DirectionInsufficient || monthsAhead <= 0 {
		return nil
	}
	confidence := "medium"
	if m.Strength == StrengthStrong {
		confidence = "high"
	}
	first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location())
	out := make([]Projection, 0, monthsAhead)
	for i := 1; i <= monthsAhead; i++ {
		out = append(out, Projection{
			Month:      first.AddDate(0, i, 0).Format(domain.MonthLayout),
			Amount:     m.Average * math.Pow(1+m.GrowthRate/100, float64(i)),
			Confidence: confidence,
		})
	}
	return out
}

type InsightType string

const (
	InsightWarning  InsightType = "warning"
	InsightPositive InsightType = "positive"
	InsightInfo     InsightType = "info"
)

// Insight is a human-readable observation about a trend.
type Insight struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    string      `json:"priority"`
}

// SpendingInsights flags strong spending trends and high month-to-month
// variability.
func SpendingInsights(m TrendMetrics) []Insight {
	var out []Insight
	if m.Strength == StrengthStrong {
		switch m.Direction {
		case DirectionIncreasing:
			out = append(out, Insight{
				Type:        InsightWarning,
				Title:       "Rapidly Increasing Expenses",
				Description: fmt.Sprintf("Your spending is increasing at %.1f%% per month. Consider reviewing your budget to control expenses.", math.Abs(m.GrowthRate)),
				Priority:    "high",
			})
		case DirectionDecreasing:
			out = append(out, Insight{
				Type:        InsightPositive,
				Title:       "Great Progress on Expense Reduction",
				Description: fmt.Sprintf("Your spending is decreasing at %.1f%% per month. Keep up the good work!", math.Abs(m.GrowthRate)),
				Priority:    "low",
			})
		}
	}
	if m.CoefficientOfVariation() > variabilityCVPercent {
		out = append(out, Insight{
			Type:        InsightInfo,
			Title:       "High Spending Variability",
			Description: "Your monthly spending varies significantly. Consider creating a more consistent budget.",
			Priority:    "medium",
		})
	}
	return out
}

// CategoryGrowth is the input to CategoryComparisonInsights.
type CategoryGrowth struct {
	Category   string
	GrowthRate float64
	Direction  Direction
}

// CategoryComparisonInsights names the fastest growing category (above 5% a
// month) and counts the stable ones.
func CategoryComparisonInsights(categories []CategoryGrowth) []Insight {
	if len(categories) == 0 {
		return nil
	}
	var out []Insight
	fastest := categories[0]
	stable := 0
	for _, c := range categories {
		if c.GrowthRate > fastest.GrowthRate {
			fastest = c
		}
		if c.Direction == DirectionStable {
			stable++
		}
	}
	if fastest.GrowthRate > 5 {
		out = append(out, Insight{
			Type:        InsightWarning,
			Title:       "Fastest Growing Category: " + fastest.Category,
			Description: fmt.Sprintf("Spending on %s is growing at %.1f%% per month.", fastest.Category, fastest.GrowthRate),
			Priority:    "high",
		})
	}
	if stable > 0 {
		out = append(out, Insight{
			Type:        InsightInfo,
			Title:       "Stable Spending Categories",
			Description: fmt.Sprintf("%d categories show stable spending patterns, indicating good budget control.", stable),
			Priority:    "low",
		})
	}
	return out
}

// IncomeExpenseInsights compares income and expense growth and follows the
// savings rate direction.
func IncomeExpenseInsights(income, expenses, savingsRate TrendMetrics) []Insight {
	var out []Insight
	if expenses.GrowthRate > income.GrowthRate {
		out = append(out, Insight{
			Type:  InsightWarning,
			Title: "Expenses Growing Faster Than Income",
			Description: fmt.Sprintf("Your expenses are growing %.1f%% while income is growing %.1f%%. This trend is unsustainable.",
				expenses.GrowthRate, income.GrowthRate),
			Priority: "high",
		})
	}
	switch savingsRate.Direction {
	case DirectionDecreasing:
		out = append(out, Insight{
			Type:        InsightWarning,
			Title:       "Declining Savings Rate",
			Description: "Your savings rate has been declining. Review your budget to reverse this trend.",
			Priority:    "high",
		})
	case DirectionIncreasing:
		out = append(out, Insight{
			Type:        InsightPositive,
			Title:       "Improving Savings Rate",
			Description: fmt.Sprintf("Great job! Your average savings rate is %.1f%% and improving.", savingsRate.Average),
			Priority:    "low",
		})
	}
	return out
}
