package service

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"

	"github.com/jask/moneywiz-analytics/internal/database/repository"
	"github.com/jask/moneywiz-analytics/internal/domain"
	"github.com/jask/moneywiz-analytics/internal/logger"
	"github.com/jask/moneywiz-analytics/internal/money"
)

type AssignmentLookup interface {
	ForTransaction(ctx context.Context, transactionID int64) (*repository.CategoryAssignment, error)
}

type PayeeLookup interface {
	Get(ctx context.Context, id int64) (*repository.Payee, error)
}

type CurrencyLookup interface {
	Currency(ctx context.Context, accountID int64) (string, error)
}

type TagLookup interface {
	ForTransaction(ctx context.Context, transactionID int64) ([]repository.Tag, error)
}

// EnricherOptions configures an Enricher.
type EnricherOptions struct {
	CacheSize        int
	FallbackCurrency string
}

// Enricher resolves category, hierarchy, payee, currency and tags for raw
// transactions. Payee and currency lookups are memoised in bounded LRU caches.
type Enricher struct {
	assignments AssignmentLookup
	payees      PayeeLookup
	accounts    CurrencyLookup
	tags        TagLookup
	hierarchy   *HierarchyResolver
	fallback    string

	payeeNames *lru.Cache[int64, string]
	currencies *lru.Cache[int64, string]
}

func NewEnricher(assignments AssignmentLookup, payees PayeeLookup, accounts CurrencyLookup, tags TagLookup,
	hierarchy *HierarchyResolver, opts EnricherOptions) (*Enricher, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 4096
	}
	fallback, err := money.NormalizeCode(opts.FallbackCurrency)
	if err != nil {
		fallback = money.FallbackCurrency
	}
	payeeNames, err := lru.New[int64, string](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("payee cache: %w", err)
	}
	currencies, err := lru.New[int64, string](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("currency cache: %w", err)
	}
	return &Enricher{
		assignments: assignments,
		payees:      payees,
		accounts:    accounts,
		tags:        tags,
		hierarchy:   hierarchy,
		fallback:    fallback,
		payeeNames:  payeeNames,
		currencies:  currencies,
	}, nil
}

// FromRecord converts a raw row into an unenriched Transaction.
func FromRecord(r repository.Transaction) domain.Transaction {
	return domain.Transaction{
		ID:                     r.ID,
		GID:                    r.GID,
		Entity:                 r.Entity,
		Type:                   domain.TypeFromEntity(r.Entity),
		AccountID:              r.AccountID,
		Amount:                 r.Amount,
		Date:                   r.Date,
		Description:            r.Description,
		Notes:                  r.Notes,
		Reconciled:             r.Reconciled,
		PayeeID:                r.PayeeID,
		OriginalAmount:         nullable(r.OriginalAmount),
		OriginalCurrency:       strings.ToUpper(strings.TrimSpace(r.OriginalCurrency)),
		OriginalExchangeRate:   nullable(r.OriginalExchangeRate),
		SenderAccountID:        r.SenderAccountID,
		RecipientAccountID:     r.RecipientAccountID,
		SenderTransactionID:    r.SenderTransactionID,
		RecipientTransactionID: r.RecipientTransactionID,
		InvestmentHoldingID:    r.InvestmentHoldingID,
		NumberOfShares:         nullable(r.NumberOfShares),
		PricePerShare:          nullable(r.PricePerShare),
		Fee:                    nullable(r.Fee),
	}
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

// EnrichAll converts and enriches every row.
func (e *Enricher) EnrichAll(ctx context.Context, rows []repository.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		t := FromRecord(r)
		e.Enrich(ctx, &t)
		out = append(out, t)
	}
	return out
}

// Enrich fills t in place. Failed lookups are logged and leave defaults.
func (e *Enricher) Enrich(ctx context.Context, t *domain.Transaction) {
	e.resolveCategory(ctx, t)
	e.resolvePayee(ctx, t)
	t.Currency = e.currency(ctx, t.AccountID)
	e.resolveTags(ctx, t)
}

func (e *Enricher) resolveCategory(ctx context.Context, t *domain.Transaction) {
	t.Category, t.CategoryID = domain.Uncategorized, nil

	a, err := e.assignments.ForTransaction(ctx, t.ID)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Warn().Err(err).Int64("transaction_id", t.ID).Msg("category assignment lookup failed")
		return
	}
	if a == nil {
		return
	}
	id := a.CategoryID
	t.CategoryID = &id
	t.Category = a.CategoryName
	if t.Category == "" {
		t.Category = domain.UnknownCategory
	}

	hierarchy := e.hierarchy.Resolve(ctx, id)
	t.CategoryHierarchy = hierarchy
	t.CategoryPath = t.Category
	if len(hierarchy) > 1 {
		t.ParentCategory = hierarchy[0]
		t.CategoryPath = strings.Join(hierarchy, domain.HierarchySep)
		t.Category = hierarchy[len(hierarchy)-1]
		if root, ok := e.hierarchy.RootCategoryID(ctx, id); ok {
			t.ParentCategoryID = &root
		}
	}
}

func (e *Enricher) resolvePayee(ctx context.Context, t *domain.Transaction) {
	if t.PayeeID == nil {
		return
	}
	id := *t.PayeeID
	if name, ok := e.payeeNames.Get(id); ok {
		t.Payee = name
		return
	}
	p, err := e.payees.Get(ctx, id)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Warn().Err(err).Int64("payee_id", id).Msg("payee lookup failed")
		t.Payee = domain.UnknownPayee
		return
	}
	name := domain.UnknownPayee
	if p != nil && p.Name != "" {
		name = p.Name
	}
	e.payeeNames.Add(id, name)
	t.Payee = name
}

func (e *Enricher) currency(ctx context.Context, accountID *int64) string {
	if accountID == nil {
		return e.fallback
	}
	id := *accountID
	if code, ok := e.currencies.Get(id); ok {
		return code
	}
	raw, err := e.accounts.Currency(ctx, id)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Warn().Err(err).Int64("account_id", id).Msg("account currency lookup failed")
		return e.fallback
	}
	code, err := money.NormalizeCode(raw)
	if err != nil {
		code = e.fallback
	}
	e.currencies.Add(id, code)
	return code
}

func (e *Enricher) resolveTags(ctx context.Context, t *domain.Transaction) {
	tags, err := e.tags.ForTransaction(ctx, t.ID)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Warn().Err(err).Int64("transaction_id", t.ID).Msg("tag lookup failed")
		return
	}
	for _, tag := range tags {
		t.Tags = append(t.Tags, tag.Name)
	}
}

// ClearCache empties the payee and currency caches. The hierarchy cache is
// owned by the resolver.
func (e *Enricher) ClearCache() {
	e.payeeNames.Purge()
	e.currencies.Purge()
}
