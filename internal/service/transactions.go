package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneywiz-analytics/internal/database"
	"github.com/jask/moneywiz-analytics/internal/database/repository"
	"github.com/jask/moneywiz-analytics/internal/domain"
	"github.com/jask/moneywiz-analytics/internal/logger"
	"github.com/jask/moneywiz-analytics/internal/money"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidGroupBy  = errors.New("invalid group by")
)

type TransactionStore interface {
	List(ctx context.Context, f repository.TransactionFilters) ([]repository.Transaction, error)
}

type AccountFinder interface {
	Get(ctx context.Context, id int64) (*repository.Account, error)
	GetByGID(ctx context.Context, gid string) (*repository.Account, error)
}

// TransactionQuery selects transactions. Account ids are external ZGIDs or
// stringified primary keys; categories match any level of the hierarchy.
type TransactionQuery struct {
	Range      domain.DateRange
	AccountIDs []string
	Categories []string
	Types      []domain.TransactionType
	Limit      int
}

type TransactionService struct {
	transactions TransactionStore
	accounts     AccountFinder
	enricher     *Enricher
	income       *IncomeClassifier
	loc          *time.Location
}

func NewTransactionService(transactions TransactionStore, accounts AccountFinder, enricher *Enricher,
	income *IncomeClassifier, loc *time.Location) *TransactionService {
	if loc == nil {
		loc = time.Local
	}
	return &TransactionService{
		transactions: transactions,
		accounts:     accounts,
		enricher:     enricher,
		income:       income,
		loc:          loc,
	}
}

// List returns enriched transactions, newest first.
func (s *TransactionService) List(ctx context.Context, q TransactionQuery) ([]domain.Transaction, error) {
	accountIDs, err := s.resolveAccounts(ctx, q.AccountIDs)
	if err != nil {
		return nil, err
	}

	f := repository.TransactionFilters{
		From:       q.Range.Start,
		To:         q.Range.End,
		Entities:   entitiesFor(q.Types),
		AccountIDs: accountIDs,
	}
	postFilter := len(q.Categories) > 0 || len(q.Types) > 0
	if !postFilter {
		f.Limit = q.Limit
	}

	rows, err := s.transactions.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]domain.Transaction, 0, len(rows))
	filtered := 0
	for _, r := range rows {
		t := FromRecord(r)
		if len(q.Types) > 0 && !hasType(q.Types, t.Type) {
			continue
		}
		s.enricher.Enrich(ctx, &t)
		if len(q.Categories) > 0 && !matchesAny(t, q.Categories) {
			filtered++
			continue
		}
		out = append(out, t)
		if postFilter && q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	lg := logger.FromContext(ctx)
	lg.Debug().Int("rows", len(rows)).Int("returned", len(out)).Int("category_filtered", filtered).Msg("transactions listed")
	return out, nil
}

// entitiesFor returns nil (every transaction entity) when no types are given,
// otherwise the core entities plus those of the requested types.
func entitiesFor(types []domain.TransactionType) []int {
	if len(types) == 0 {
		return nil
	}
	out := append([]int(nil), database.CoreTransactionEntities...)
	for _, t := range types {
		ent, ok := t.Entity()
		if !ok {
			continue
		}
		dup := false
		for _, e := range out {
			if e == ent {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, ent)
		}
	}
	return out
}

func hasType(types []domain.TransactionType, t domain.TransactionType) bool {
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

func matchesAny(t domain.Transaction, categories []string) bool {
	for _, c := range categories {
		if t.MatchesCategory(c) {
			return true
		}
	}
	return false
}

func (s *TransactionService) resolveAccounts(ctx context.Context, ids []string) ([]int64, error) {
	var out []int64
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		acct, err := s.accounts.GetByGID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("look up account %q: %w", id, err)
		}
		if acct == nil {
			if pk, perr := strconv.ParseInt(id, 10, 64); perr == nil {
				acct, err = s.accounts.Get(ctx, pk)
				if err != nil {
					return nil, fmt.Errorf("look up account %q: %w", id, err)
				}
			}
		}
		if acct == nil {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
		}
		out = append(out, acct.ID)
	}
	return out, nil
}

type GroupBy string

const (
	GroupByCategory GroupBy = "category"
	GroupByPayee    GroupBy = "payee"
	GroupByAll      GroupBy = "all"
)

func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GroupByCategory, nil
	case GroupByCategory, GroupByPayee, GroupByAll:
		return g, nil
	}
	return "", fmt.Errorf("%w: %q (want category, payee or all)", ErrInvalidGroupBy, s)
}

const allExpensesGroup = "All Expenses"

// AmountGroup is one bucket of a breakdown. Every figure is kept per currency.
type AmountGroup struct {
	Name                  string                     `json:"name"`
	Totals                money.Amounts              `json:"totals"`
	Counts                map[string]int             `json:"counts"`
	Averages              map[string]decimal.Decimal `json:"averages"`
	PercentWithinCurrency map[string]decimal.Decimal `json:"percent_within_currency"`
	Count                 int                        `json:"transaction_count"`
}

// ExpenseSummary breaks a period's expenses down by group.
type ExpenseSummary struct {
	Range   domain.DateRange `json:"range"`
	GroupBy GroupBy          `json:"group_by"`
	Totals  money.Amounts    `json:"totals"`
	Count   int              `json:"transaction_count"`
	Groups  []AmountGroup    `json:"groups"`
}

// Expenses returns the negative, non-transfer transactions of the period.
func (s *TransactionService) Expenses(ctx context.Context, r domain.DateRange) ([]domain.Transaction, error) {
	txs, err := s.List(ctx, TransactionQuery{Range: r})
	if err != nil {
		return nil, err
	}
	return filterExpenses(txs), nil
}

func filterExpenses(txs []domain.Transaction) []domain.Transaction {
	var out []domain.Transaction
	for _, t := range txs {
		if t.IsExpense() {
			out = append(out, t)
		}
	}
	return out
}

func (s *TransactionService) ExpenseSummary(ctx context.Context, r domain.DateRange, groupBy GroupBy) (ExpenseSummary, error) {
	if _, err := ParseGroupBy(string(groupBy)); err != nil {
		return ExpenseSummary{}, err
	}
	expenses, err := s.Expenses(ctx, r)
	if err != nil {
		return ExpenseSummary{}, err
	}
	totals, groups := breakdown(expenses, groupKey(groupBy))
	return ExpenseSummary{Range: r, GroupBy: groupBy, Totals: totals, Count: len(expenses), Groups: groups}, nil
}

func groupKey(g GroupBy) func(domain.Transaction) string {
	switch g {
	case GroupByPayee:
		return func(t domain.Transaction) string {
			if t.Payee == "" {
				return domain.UnknownPayee
			}
			return t.Payee
		}
	case GroupByAll:
		return func(domain.Transaction) string { return allExpensesGroup }
	}
	return func(t domain.Transaction) string {
		if t.Category == "" {
			return domain.Uncategorized
		}
		return t.Category
	}
}

// breakdown totals absolute amounts per group and currency. Groups are sorted
// by total activity, largest first, then by name.
func breakdown(txs []domain.Transaction, key func(domain.Transaction) string) (money.Amounts, []AmountGroup) {
	totals := money.Amounts{}
	byName := map[string]*AmountGroup{}
	for _, t := range txs {
		amount := t.Amount.Abs()
		totals = totals.Plus(t.Currency, amount)
		name := key(t)
		g, ok := byName[name]
		if !ok {
			g = &AmountGroup{Name: name, Counts: map[string]int{}}
			byName[name] = g
		}
		g.Totals = g.Totals.Plus(t.Currency, amount)
		g.Counts[t.Currency]++
		g.Count++
	}

	groups := make([]AmountGroup, 0, len(byName))
	for _, g := range byName {
		g.Averages = map[string]decimal.Decimal{}
		g.PercentWithinCurrency = map[string]decimal.Decimal{}
		rates := g.Totals.CalculateRates(totals)
		for _, code := range g.Totals.Currencies() {
			g.PercentWithinCurrency[code] = rates[code]
			if n := g.Counts[code]; n > 0 {
				g.Averages[code] = g.Totals.Get(code).Div(decimal.NewFromInt(int64(n)))
			}
		}
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		ai, aj := groups[i].Totals.TotalActivity(), groups[j].Totals.TotalActivity()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return groups[i].Name < groups[j].Name
	})
	return totals, groups
}

// MonthlyAmounts is one month of income and expenses.
type MonthlyAmounts struct {
	Month    string        `json:"month"`
	Income   money.Amounts `json:"income"`
	Expenses money.Amounts `json:"expenses"`
}

// IncomeExpense compares a period's income with its expenses per currency.
type IncomeExpense struct {
	Range            domain.DateRange           `json:"range"`
	Income           money.Amounts              `json:"total_income"`
	Expenses         money.Amounts              `json:"total_expenses"`
	NetSavings       money.Amounts              `json:"net_savings"`
	SavingsRate      map[string]decimal.Decimal `json:"savings_rate"`
	PrimaryCurrency  string                     `json:"primary_currency"`
	Currencies       []string                   `json:"currencies"`
	IncomeBreakdown  []AmountGroup              `json:"income_breakdown"`
	ExpenseBreakdown []AmountGroup              `json:"expense_breakdown"`
	Monthly          []MonthlyAmounts           `json:"monthly"`
}

// IncomeVsExpense counts as income every positive non-transfer accepted by
// the income classifier plus salary-related incoming transfers.
func (s *TransactionService) IncomeVsExpense(ctx context.Context, r domain.DateRange) (IncomeExpense, error) {
	out, _, err := s.incomeExpense(ctx, r)
	return out, err
}

// incomeExpense also returns the expense rows it was built from.
func (s *TransactionService) incomeExpense(ctx context.Context, r domain.DateRange) (IncomeExpense, []domain.Transaction, error) {
	txs, err := s.List(ctx, TransactionQuery{Range: r})
	if err != nil {
		return IncomeExpense{}, nil, err
	}
	income, expenses := s.splitIncomeExpense(ctx, txs)

	out := IncomeExpense{Range: r}
	out.Income, out.IncomeBreakdown = breakdown(income, groupKey(GroupByCategory))
	out.Expenses, out.ExpenseBreakdown = breakdown(expenses, groupKey(GroupByCategory))
	out.NetSavings = out.Income.Sub(out.Expenses)
	out.SavingsRate = out.NetSavings.CalculateRates(out.Income)
	activity := out.Income.Add(out.Expenses)
	out.PrimaryCurrency = activity.PrimaryCurrency()
	out.Currencies = activity.Currencies()
	out.Monthly = s.monthly(income, expenses)
	return out, expenses, nil
}

func (s *TransactionService) splitIncomeExpense(ctx context.Context, txs []domain.Transaction) (income, expenses []domain.Transaction) {
	for _, t := range txs {
		switch {
		case t.IsExpense():
			expenses = append(expenses, t)
		case !t.Amount.IsPositive():
		case !t.IsTransfer():
			if s.income.IsLegitimateIncome(ctx, t) {
				income = append(income, t)
			}
		case IsSalaryRelatedTransfer(t):
			income = append(income, t)
		}
	}
	return income, expenses
}

func (s *TransactionService) monthly(income, expenses []domain.Transaction) []MonthlyAmounts {
	byMonth := map[string]*MonthlyAmounts{}
	get := func(t domain.Transaction) *MonthlyAmounts {
		label := domain.MonthLabel(t.Date, s.loc)
		m, ok := byMonth[label]
		if !ok {
			m = &MonthlyAmounts{Month: label}
			byMonth[label] = m
		}
		return m
	}
	for _, t := range income {
		m := get(t)
		m.Income = m.Income.Plus(t.Currency, t.Amount)
	}
	for _, t := range expenses {
		m := get(t)
		m.Expenses = m.Expenses.Plus(t.Currency, t.Amount.Abs())
	}
	out := make([]MonthlyAmounts, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
