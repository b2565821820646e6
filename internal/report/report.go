// Package report prints service results as styled terminal text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/shopspring/decimal"

	"github.com/jask/moneywiz-analytics/internal/domain"
	"github.com/jask/moneywiz-analytics/internal/money"
	"github.com/jask/moneywiz-analytics/internal/service"
)

const defaultWidth = 96

// Printer writes reports to out. With JSON set every report is a single
// indented JSON document instead of styled text.
type Printer struct {
	out   io.Writer
	json  bool
	width int
}

func New(out io.Writer, asJSON bool) *Printer {
	return &Printer{out: out, json: asJSON, width: defaultWidth}
}

func (p *Printer) emit(v any, text func() string) error {
	if p.json {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(p.out, text())
	return err
}

// Message prints a plain status line, or {"message": ...} in JSON mode.
func (p *Printer) Message(msg string) error {
	return p.emit(map[string]string{"message": msg}, func() string { return textStyle.Render(msg) })
}

// ---------------------------------------------------------------------------
// Layout helpers
// ---------------------------------------------------------------------------

func (p *Printer) section(title, content string) string {
	inner := p.width - 4
	header := padRight(titleStyle.Render(title), inner)
	sep := separatorStyle.Render(strings.Repeat("─", inner))
	return sectionStyle.Width(p.width).Render(header + "\n" + sep + "\n" + content)
}

func (p *Printer) sections(parts ...string) string {
	var kept []string
	for _, s := range parts {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, kept...)
}

type column struct {
	title string
	width int
	right bool
}

// table renders rows under a bold header. Cells wider than their column are
// truncated with an ellipsis.
func table(cols []column, rows [][]string) string {
	cell := func(c column, s string) string {
		s = truncate(s, c.width)
		if c.right {
			return padLeft(s, c.width)
		}
		return padRight(s, c.width)
	}
	head := make([]string, len(cols))
	for i, c := range cols {
		head[i] = cell(c, c.title)
	}
	lines := []string{tableHeaderStyle.Render(strings.Join(head, "  "))}
	for _, r := range rows {
		fields := make([]string, len(cols))
		for i, c := range cols {
			v := ""
			if i < len(r) {
				v = r[i]
			}
			fields[i] = cell(c, v)
		}
		lines = append(lines, strings.Join(fields, "  "))
	}
	if len(rows) == 0 {
		lines = append(lines, mutedStyle.Render("(none)"))
	}
	return strings.Join(lines, "\n")
}

func kv(pairs ...[2]string) string {
	w := 0
	for _, p := range pairs {
		if n := ansi.StringWidth(p[0]); n > w {
			w = n
		}
	}
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		lines = append(lines, labelStyle.Render(padRight(p[0], w))+"  "+valueStyle.Render(p[1]))
	}
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func padLeft(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return strings.Repeat(" ", width-w) + s
	}
	return s
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

func amount(code string, d decimal.Decimal) string {
	return d.StringFixed(2) + " " + code
}

func signed(code string, d decimal.Decimal) string {
	s := amount(code, d)
	switch {
	case d.IsPositive():
		return creditStyle.Render(s)
	case d.IsNegative():
		return debitStyle.Render(s)
	}
	return s
}

func amounts(a money.Amounts) string {
	if a.IsEmpty() {
		return "0.00"
	}
	parts := make([]string, 0, a.Len())
	for _, code := range a.Currencies() {
		parts = append(parts, amount(code, a.Get(code)))
	}
	return strings.Join(parts, ", ")
}

func percent(d decimal.Decimal) string { return d.StringFixed(1) + "%" }

func rangeTitle(title string, r domain.DateRange) string {
	return title + "  " + mutedStyle.Render(r.Start.Format(time.DateOnly)+" → "+r.End.Format(time.DateOnly))
}

func insights(list []service.Insight) string {
	if len(list) == 0 {
		return ""
	}
	lines := make([]string, 0, len(list))
	for _, in := range list {
		style := infoStyle
		switch in.Type {
		case service.InsightWarning:
			style = warningStyle
		case service.InsightPositive:
			style = positiveStyle
		}
		lines = append(lines, style.Render("• "+in.Title)+"\n  "+textStyle.Render(in.Description))
	}
	return strings.Join(lines, "\n")
}

func metrics(m service.TrendMetrics) string {
	return kv(
		[2]string{"Direction", fmt.Sprintf("%s (%s)", m.Direction, m.Strength)},
		[2]string{"Growth", fmt.Sprintf("%.1f%%/month", m.GrowthRate)},
		[2]string{"Average", fmt.Sprintf("%.2f", m.Average)},
		[2]string{"Median", fmt.Sprintf("%.2f", m.Median)},
		[2]string{"Std dev", fmt.Sprintf("%.2f", m.StdDev)},
		[2]string{"Stability", string(m.Stability)},
	)
}

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

func (p *Printer) Accounts(list []service.AccountSummary) error {
	return p.emit(list, func() string {
		rows := make([][]string, 0, len(list))
		for _, a := range list {
			name := a.Name
			if a.Archived {
				name += " " + mutedStyle.Render("(hidden)")
			}
			rows = append(rows, []string{strconv.FormatInt(a.ID, 10), name, a.Type, a.Institution, signed(a.Currency, a.Balance)})
		}
		return p.section("Accounts", table([]column{
			{title: "ID", width: 6, right: true},
			{title: "Name", width: 30},
			{title: "Type", width: 12},
			{title: "Institution", width: 16},
			{title: "Balance", width: 20, right: true},
		}, rows))
	})
}

type transactionView struct {
	ID           int64           `json:"id"`
	Date         time.Time       `json:"date"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Description  string          `json:"description"`
	Payee        string          `json:"payee,omitempty"`
	Category     string          `json:"category"`
	CategoryPath string          `json:"category_path,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Reconciled   bool            `json:"reconciled"`

	Shares        *decimal.Decimal `json:"shares,omitempty"`
	PricePerShare *decimal.Decimal `json:"price_per_share,omitempty"`
	Fee           *decimal.Decimal `json:"fee,omitempty"`
}

// describe appends share details to investment rows.
func (v transactionView) describe() string {
	if v.Shares == nil {
		return v.Description
	}
	detail := v.Shares.String() + " sh"
	if v.PricePerShare != nil {
		detail += " @ " + v.PricePerShare.StringFixed(2)
	}
	if v.Description == "" {
		return detail
	}
	return v.Description + " (" + detail + ")"
}

func (p *Printer) Transactions(txs []domain.Transaction) error {
	views := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		v := transactionView{
			ID: t.ID, Date: t.Date, Type: string(t.Type), Amount: t.Amount, Currency: t.Currency,
			Description: t.Description, Payee: t.Payee, Category: t.Category, CategoryPath: t.CategoryPath,
			Tags: t.Tags, Reconciled: t.Reconciled,
		}
		if t.Type.IsInvestment() {
			v.Shares, v.PricePerShare, v.Fee = t.NumberOfShares, t.PricePerShare, t.Fee
		}
		views = append(views, v)
	}
	return p.emit(views, func() string {
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			category := v.CategoryPath
			if category == "" {
				category = v.Category
			}
			rows = append(rows, []string{v.Date.Format(time.DateOnly), v.Type, v.describe(), category, signed(v.Currency, v.Amount)})
		}
		return p.section(fmt.Sprintf("Transactions (%d)", len(views)), table([]column{
			{title: "Date", width: 10},
			{title: "Type", width: 12},
			{title: "Description", width: 26},
			{title: "Category", width: 20},
			{title: "Amount", width: 16, right: true},
		}, rows))
	})
}

func groupRows(groups []service.AmountGroup) [][]string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		var pcts []string
		for _, code := range g.Totals.Currencies() {
			pcts = append(pcts, fmt.Sprintf("%s %s", percent(g.PercentWithinCurrency[code]), code))
		}
		rows = append(rows, []string{g.Name, amounts(g.Totals), fmt.Sprintf("%d", g.Count), strings.Join(pcts, ", ")})
	}
	return rows
}

var groupColumns = []column{
	{title: "Group", width: 24},
	{title: "Total", width: 30},
	{title: "Count", width: 6, right: true},
	{title: "Share", width: 24},
}

func (p *Printer) ExpenseSummary(s service.ExpenseSummary) error {
	return p.emit(s, func() string {
		summary := kv(
			[2]string{"Total", amounts(s.Totals)},
			[2]string{"Transactions", fmt.Sprintf("%d", s.Count)},
			[2]string{"Grouped by", string(s.GroupBy)},
		)
		return p.sections(
			p.section(rangeTitle("Expenses", s.Range), summary),
			p.section("Breakdown", table(groupColumns, groupRows(s.Groups))),
		)
	})
}

func (p *Printer) IncomeExpense(r service.IncomeExpense) error {
	return p.emit(r, func() string {
		rates := make([]string, 0, len(r.SavingsRate))
		for _, code := range r.Currencies {
			rates = append(rates, fmt.Sprintf("%s %s", percent(r.SavingsRate[code]), code))
		}
		summary := kv(
			[2]string{"Income", amounts(r.Income)},
			[2]string{"Expenses", amounts(r.Expenses)},
			[2]string{"Net savings", amounts(r.NetSavings)},
			[2]string{"Savings rate", strings.Join(rates, ", ")},
			[2]string{"Primary currency", r.PrimaryCurrency},
		)
		monthly := make([][]string, 0, len(r.Monthly))
		for _, m := range r.Monthly {
			monthly = append(monthly, []string{m.Month, amounts(m.Income), amounts(m.Expenses)})
		}
		return p.sections(
			p.section(rangeTitle("Income vs Expenses", r.Range), summary),
			p.section("Monthly", table([]column{
				{title: "Month", width: 8},
				{title: "Income", width: 36},
				{title: "Expenses", width: 36},
			}, monthly)),
			p.section("Income by category", table(groupColumns, groupRows(r.IncomeBreakdown))),
			p.section("Expenses by category", table(groupColumns, groupRows(r.ExpenseBreakdown))),
		)
	})
}

func (p *Printer) SpendingTrend(t service.SpendingTrend) error {
	return p.emit(t, func() string {
		title := "Spending Trends"
		if t.Category != "" {
			title += ": " + t.Category
		}
		rows := make([][]string, 0, len(t.Monthly))
		for _, m := range t.Monthly {
			rows = append(rows, []string{m.Month, fmt.Sprintf("%.2f %s", m.Total, t.Currency), fmt.Sprintf("%d", m.Count), fmt.Sprintf("%.2f", m.Average)})
		}
		proj := make([][]string, 0, len(t.Projections))
		for _, pr := range t.Projections {
			proj = append(proj, []string{pr.Month, fmt.Sprintf("%.2f %s", pr.Amount, t.Currency), pr.Confidence})
		}
		var suggestions string
		if len(t.Suggestions) > 0 {
			suggestions = p.section("Did you mean", accentStyle.Render(strings.Join(t.Suggestions, ", ")))
		}
		var insightSection string
		if s := insights(t.Insights); s != "" {
			insightSection = p.section("Insights", s)
		}
		return p.sections(
			p.section(rangeTitle(title, t.Range), table([]column{
				{title: "Month", width: 8},
				{title: "Spent", width: 20, right: true},
				{title: "Count", width: 6, right: true},
				{title: "Average", width: 12, right: true},
			}, rows)),
			suggestions,
			p.section("Statistics", metrics(t.Metrics)),
			insightSection,
			p.section("Projections", table([]column{
				{title: "Month", width: 8},
				{title: "Projected", width: 20, right: true},
				{title: "Confidence", width: 10},
			}, proj)),
		)
	})
}

func (p *Printer) CategoryTrends(t service.CategoryTrends) error {
	return p.emit(t, func() string {
		rows := make([][]string, 0, len(t.Categories))
		for _, c := range t.Categories {
			rows = append(rows, []string{c.Category, amount(t.Currency, c.Total), percent(c.Percentage),
				string(c.Direction), fmt.Sprintf("%.1f%%", c.GrowthRate)})
		}
		var insightSection string
		if s := insights(t.Insights); s != "" {
			insightSection = p.section("Insights", s)
		}
		return p.sections(
			p.section(rangeTitle("Category Trends", t.Range), table([]column{
				{title: "Category", width: 24},
				{title: "Total", width: 18, right: true},
				{title: "Share", width: 7, right: true},
				{title: "Trend", width: 18},
				{title: "Growth", width: 9, right: true},
			}, rows)),
			insightSection,
		)
	})
}

func (p *Printer) IncomeExpenseTrend(t service.IncomeExpenseTrend) error {
	return p.emit(t, func() string {
		rows := make([][]string, 0, len(t.Monthly))
		for _, m := range t.Monthly {
			rows = append(rows, []string{m.Month, m.Currency, fmt.Sprintf("%.2f", m.Income), fmt.Sprintf("%.2f", m.Expenses),
				fmt.Sprintf("%.2f", m.NetSavings), fmt.Sprintf("%.1f%%", m.SavingsRate)})
		}
		var insightSection string
		if s := insights(t.Insights); s != "" {
			insightSection = p.section("Insights", s)
		}
		return p.sections(
			p.section(rangeTitle("Income vs Expense Trends", t.Range), table([]column{
				{title: "Month", width: 8},
				{title: "Cur", width: 4},
				{title: "Income", width: 12, right: true},
				{title: "Expenses", width: 12, right: true},
				{title: "Net", width: 12, right: true},
				{title: "Rate", width: 8, right: true},
			}, rows)),
			p.section("Savings rate", metrics(t.SavingsRate)),
			insightSection,
		)
	})
}

func (p *Printer) Savings(r service.SavingsReport) error {
	return p.emit(r, func() string {
		current := kv(
			[2]string{"Income", amount(r.Currency, r.Current.Income)},
			[2]string{"Expenses", amount(r.Currency, r.Current.Expenses)},
			[2]string{"Savings rate", percent(r.Current.SavingsRate)},
			[2]string{"Monthly savings", amount(r.Currency, r.Current.MonthlySavings)},
			[2]string{"Target rate", percent(r.Target.TargetRate)},
			[2]string{"Projected rate", percent(r.Target.ProjectedRate)},
			[2]string{"Potential savings", amount(r.Currency, r.Target.PotentialMonthlySavings) + "/month"},
		)
		var recs []string
		for i, rec := range r.Recommendations {
			style := infoStyle
			if rec.Priority == service.PriorityHigh {
				style = warningStyle
			}
			line := style.Render(fmt.Sprintf("%d. %s", i+1, rec.Title)) + "\n   " + textStyle.Render(rec.Description)
			if rec.Impact.IsPositive() {
				line += "\n   " + labelStyle.Render("impact ") + valueStyle.Render(amount(r.Currency, rec.Impact)+"/month")
			}
			for _, tip := range rec.Tips {
				line += "\n   " + mutedStyle.Render("- "+tip)
			}
			recs = append(recs, line)
		}
		analysis := kv(
			[2]string{"Top 3 share", percent(r.Concentration.Top3Percent)},
			[2]string{"Concentration", r.Concentration.Message},
			[2]string{"Fixed expenses", percent(r.FixedVariable.FixedPercent)},
			[2]string{"Weekend daily", amount(r.Currency, r.Patterns.WeekendDailyAverage)},
			[2]string{"Weekday daily", amount(r.Currency, r.Patterns.WeekdayDailyAverage)},
			[2]string{"Patterns", strings.Join(r.Patterns.Detected, ", ")},
		)
		body := strings.Join(recs, "\n")
		if body == "" {
			body = mutedStyle.Render("(none)")
		}
		return p.sections(
			p.section(rangeTitle("Savings", r.Range), current),
			p.section("Recommendations", body),
			p.section("Analysis", analysis),
		)
	})
}

func (p *Printer) Classifications(a service.CategoryAnalysis) error {
	return p.emit(a, func() string {
		types := make([]string, 0, len(a.ByType))
		for t := range a.ByType {
			types = append(types, string(t))
		}
		sort.Strings(types)
		var rows [][]string
		for _, t := range types {
			for _, c := range a.ByType[service.CategoryType(t)] {
				rows = append(rows, []string{strconv.FormatInt(c.ID, 10), strings.Join(c.Hierarchy, domain.HierarchySep), t, string(c.Stage)})
			}
		}
		return p.section(fmt.Sprintf("Categories (%d)", a.Total), table([]column{
			{title: "ID", width: 6, right: true},
			{title: "Category", width: 40},
			{title: "Type", width: 10},
			{title: "Decided by", width: 16},
		}, rows))
	})
}

func (p *Printer) PatternStats(s service.PatternStats) error {
	return p.emit(s, func() string {
		updated := "never"
		if !s.LastUpdated.IsZero() {
			updated = s.LastUpdated.Format(time.RFC3339)
		}
		return p.section("Learned patterns", kv(
			[2]string{"Categories learned", fmt.Sprintf("%d", s.TotalLearned)},
			[2]string{"High-confidence income", fmt.Sprintf("%d", s.HighConfidenceIncome)},
			[2]string{"High-confidence expense", fmt.Sprintf("%d", s.HighConfidenceExpense)},
			[2]string{"Mixed usage", fmt.Sprintf("%d", s.MixedUsage)},
			[2]string{"Low confidence", fmt.Sprintf("%d", s.LowConfidence)},
			[2]string{"Avg confidence", fmt.Sprintf("%.2f", s.AvgConfidence)},
			[2]string{"Avg transactions", fmt.Sprintf("%.1f", s.AvgTransactionCount)},
			[2]string{"Last updated", updated},
		))
	})
}
