package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneywiz-analytics/internal/database"
	"github.com/jask/moneywiz-analytics/internal/database/repository"
	"github.com/jask/moneywiz-analytics/internal/logger"
)

var ErrInvalidAccountType = errors.New("invalid account type")

// Account types reported to users.
const (
	AccountChecking   = "checking"
	AccountSavings    = "savings"
	AccountCash       = "cash"
	AccountCreditCard = "credit_card"
	AccountLoan       = "loan"
	AccountInvestment = "investment"
	AccountForex      = "forex"
	AccountUnknown    = "unknown"
)

var accountTypesByClass = map[string]string{
	"BankChequeAccount": AccountChecking,
	"BankSavingAccount": AccountSavings,
	"CashAccount":       AccountCash,
	"CreditCardAccount": AccountCreditCard,
	"LoanAccount":       AccountLoan,
	"InvestmentAccount": AccountInvestment,
	"ForexAccount":      AccountForex,
}

var accountTypesByEntity = map[int]string{
	database.EntityBankChequeAccount: AccountChecking,
	database.EntityBankSavingAccount: AccountSavings,
	database.EntityCashAccount:       AccountCash,
	database.EntityCreditCardAccount: AccountCreditCard,
	database.EntityLoanAccount:       AccountLoan,
	database.EntityInvestmentAccount: AccountInvestment,
	database.EntityForexAccount:      AccountForex,
}

// ParseAccountType validates a user-supplied account type.
func ParseAccountType(s string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	for _, known := range accountTypesByEntity {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccountType, s)
}

type AccountStore interface {
	AccountFinder
	List(ctx context.Context) ([]repository.Account, error)
	Balances(ctx context.Context) (map[int64]decimal.Decimal, error)
	EntityNames(ctx context.Context) (map[int]string, error)
}

// AccountSummary is an account with its computed balance.
type AccountSummary struct {
	ID             int64           `json:"id"`
	GID            string          `json:"gid"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	EntityClass    string          `json:"entity_type"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Balance        decimal.Decimal `json:"balance"`
	Institution    string          `json:"institution,omitempty"`
	LastFourDigits string          `json:"last_four_digits,omitempty"`
	Archived       bool            `json:"archived"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
}

type AccountService struct {
	store AccountStore
}

func NewAccountService(store AccountStore) *AccountService {
	return &AccountService{store: store}
}

// List returns accounts with balances. Archived accounts are skipped unless
// includeHidden; accountType, when set, keeps only that type.
func (s *AccountService) List(ctx context.Context, includeHidden bool, accountType string) ([]AccountSummary, error) {
	if accountType != "" {
		t, err := ParseAccountType(accountType)
		if err != nil {
			return nil, err
		}
		accountType = t
	}
	accounts, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	classes, balances, err := s.lookups(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		if a.Archived && !includeHidden {
			continue
		}
		sum := summarize(a, classes, balances)
		if accountType != "" && sum.Type != accountType {
			continue
		}
		out = append(out, sum)
	}
	return out, nil
}

// Get finds an account by ZGID or stringified primary key.
func (s *AccountService) Get(ctx context.Context, id string) (AccountSummary, error) {
	id = strings.TrimSpace(id)
	a, err := s.store.GetByGID(ctx, id)
	if err != nil {
		return AccountSummary{}, fmt.Errorf("get account %q: %w", id, err)
	}
	if a == nil {
		if pk, perr := strconv.ParseInt(id, 10, 64); perr == nil {
			if a, err = s.store.Get(ctx, pk); err != nil {
				return AccountSummary{}, fmt.Errorf("get account %q: %w", id, err)
			}
		}
	}
	if a == nil {
		return AccountSummary{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	classes, balances, err := s.lookups(ctx)
	if err != nil {
		return AccountSummary{}, err
	}
	return summarize(*a, classes, balances), nil
}

func (s *AccountService) lookups(ctx context.Context) (map[int]string, map[int64]decimal.Decimal, error) {
	classes, err := s.store.EntityNames(ctx)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Warn().Err(err).Msg("entity names unavailable, using built-in account types")
		classes = map[int]string{}
	}
	balances, err := s.store.Balances(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("account balances: %w", err)
	}
	return classes, balances, nil
}

// summarize applies balance = opening balance + every core transaction amount.
func summarize(a repository.Account, classes map[int]string, balances map[int64]decimal.Decimal) AccountSummary {
	class := classes[a.Entity]
	typ, ok := accountTypesByClass[class]
	if !ok {
		if typ, ok = accountTypesByEntity[a.Entity]; !ok {
			typ = AccountUnknown
		}
	}
	currency := strings.ToUpper(strings.TrimSpace(a.Currency))
	if currency == "" {
		currency = "USD"
	}
	return AccountSummary{
		ID:             a.ID,
		GID:            a.GID,
		Name:           a.Name,
		Type:           typ,
		EntityClass:    class,
		Currency:       currency,
		OpeningBalance: a.OpeningBalance,
		Balance:        a.OpeningBalance.Add(balances[a.ID]),
		Institution:    a.Institution,
		LastFourDigits: a.LastFourDigits,
		Archived:       a.Archived,
		CreatedAt:      a.CreatedAt,
	}
}
