package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jask/moneywiz-analytics/internal/domain"
	"github.com/jask/moneywiz-analytics/internal/logger"
	"github.com/jask/moneywiz-analytics/internal/money"
)

var nonIncomeKeywords = []string{
	"loan", "prestamo", "préstamo", "credit", "credito", "crédito",
	"adjustment", "ajuste", "correction", "correccion", "corrección",
	"opening balance", "balance inicial", "saldo inicial", "inicial",
}

var salaryKeywords = []string{"salary", "salar", "payroll", "income", "wage"}

// CategoryTyper classifies a category id.
type CategoryTyper interface {
	Classify(ctx context.Context, categoryID int64) CategoryType
}

type verdict int

const (
	undecided verdict = iota
	accept
	reject
)

type incomeRule struct {
	name  string
	check func(ctx context.Context, t domain.Transaction) verdict
}

// IncomeOptions sets the amount thresholds, expressed in the reference unit.
type IncomeOptions struct {
	Ceiling          decimal.Decimal
	SmallThreshold   decimal.Decimal
	Rates            money.ReferenceRates
	FallbackCurrency string
}

// IncomeDecision records which rule settled a transaction.
type IncomeDecision struct {
	Legitimate bool   `json:"legitimate"`
	Rule       string `json:"rule"`
}

// IncomeClassifier decides whether a positive transaction is real income as
// opposed to a transfer, loan, correction or other balance movement.
type IncomeClassifier struct {
	categories CategoryTyper
	rates      money.ReferenceRates
	ceiling    decimal.Decimal
	small      decimal.Decimal
	fallback   string
	rules      []incomeRule
}

func NewIncomeClassifier(categories CategoryTyper, opts IncomeOptions) *IncomeClassifier {
	if !opts.Ceiling.IsPositive() {
		opts.Ceiling = decimal.NewFromInt(100000)
	}
	if !opts.SmallThreshold.IsPositive() {
		opts.SmallThreshold = decimal.NewFromInt(1000)
	}
	if len(opts.Rates) == 0 {
		opts.Rates = money.DefaultReferenceRates()
	}
	fallback, err := money.NormalizeCode(opts.FallbackCurrency)
	if err != nil {
		fallback = money.FallbackCurrency
	}
	c := &IncomeClassifier{
		categories: categories,
		rates:      opts.Rates,
		ceiling:    opts.Ceiling,
		small:      opts.SmallThreshold,
		fallback:   fallback,
	}
	c.rules = []incomeRule{
		{"non_positive", c.nonPositive},
		{"transfer", c.transfer},
		{"category_type", c.categoryType},
		{"categorized_deposit", c.categorizedDeposit},
		{"adjustment", c.adjustment},
		{"ceiling", c.aboveCeiling},
		{"keyword", c.keyword},
		{"categorized", c.categorized},
		{"small_amount", c.smallAmount},
	}
	return c
}

// IsLegitimateIncome reports whether t counts as income.
func (c *IncomeClassifier) IsLegitimateIncome(ctx context.Context, t domain.Transaction) bool {
	return c.Explain(ctx, t).Legitimate
}

// Explain runs the rules in order and stops at the first decisive one.
// Nothing decisive means rejection.
func (c *IncomeClassifier) Explain(ctx context.Context, t domain.Transaction) IncomeDecision {
	for _, r := range c.rules {
		switch r.check(ctx, t) {
		case accept:
			lg := logger.FromContext(ctx)
			lg.Debug().Int64("transaction_id", t.ID).Str("rule", r.name).Msg("income accepted")
			return IncomeDecision{Legitimate: true, Rule: r.name}
		case reject:
			lg := logger.FromContext(ctx)
			lg.Debug().Int64("transaction_id", t.ID).Str("rule", r.name).Msg("income rejected")
			return IncomeDecision{Rule: r.name}
		}
	}
	return IncomeDecision{Rule: "default"}
}

func (c *IncomeClassifier) nonPositive(_ context.Context, t domain.Transaction) verdict {
	if !t.Amount.IsPositive() {
		return reject
	}
	return undecided
}

func (c *IncomeClassifier) transfer(_ context.Context, t domain.Transaction) verdict {
	if t.IsTransfer() {
		return reject
	}
	return undecided
}

func (c *IncomeClassifier) categoryType(ctx context.Context, t domain.Transaction) verdict {
	if t.CategoryID == nil || c.categories == nil {
		return undecided
	}
	switch c.categories.Classify(ctx, *t.CategoryID) {
	case CategoryIncome:
		return accept
	case CategoryTransfer:
		return reject
	}
	return undecided
}

func (c *IncomeClassifier) categorizedDeposit(_ context.Context, t domain.Transaction) verdict {
	if t.Type == domain.TypeDeposit && !t.IsUncategorized() {
		return accept
	}
	return undecided
}

func (c *IncomeClassifier) adjustment(_ context.Context, t domain.Transaction) verdict {
	if t.Type.IsAdjustment() {
		return reject
	}
	return undecided
}

func (c *IncomeClassifier) aboveCeiling(_ context.Context, t domain.Transaction) verdict {
	if c.reference(t).GreaterThan(c.ceiling) {
		return reject
	}
	return undecided
}

func (c *IncomeClassifier) keyword(_ context.Context, t domain.Transaction) verdict {
	if containsAny(t.Description, nonIncomeKeywords) {
		return reject
	}
	return undecided
}

func (c *IncomeClassifier) categorized(_ context.Context, t domain.Transaction) verdict {
	if !t.IsUncategorized() {
		return accept
	}
	return undecided
}

func (c *IncomeClassifier) smallAmount(_ context.Context, t domain.Transaction) verdict {
	if c.reference(t).LessThanOrEqual(c.small) {
		return accept
	}
	return undecided
}

func (c *IncomeClassifier) reference(t domain.Transaction) decimal.Decimal {
	code := t.Currency
	if strings.TrimSpace(code) == "" {
		code = c.fallback
	}
	return c.rates.ToReference(code, t.Amount)
}

// IsSalaryRelatedTransfer reports an incoming transfer that likely carries
// pay: a cross-currency transfer or one whose description mentions salary.
func IsSalaryRelatedTransfer(t domain.Transaction) bool {
	if !t.IsTransfer() || !t.Amount.IsPositive() {
		return false
	}
	if t.HasCurrencyConversion() {
		return true
	}
	return containsAny(t.Description, salaryKeywords)
}

func containsAny(text string, keywords []string) bool {
	s := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
