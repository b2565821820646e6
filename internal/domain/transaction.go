package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Display defaults used when a lookup cannot be resolved.
const (
	Uncategorized   = "Uncategorized"
	UnknownCategory = "Unknown Category"
	UnknownPayee    = "Unknown Payee"
	HierarchySep    = " ▶ "
)

// Transaction is a transaction row plus everything resolved around it.
// The enrichment pipeline fills the category, payee, currency and tag fields.
type Transaction struct {
	ID          int64
	GID         string
	Entity      int
	Type        TransactionType
	AccountID   *int64
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	Notes       string
	Reconciled  bool

	Category          string
	CategoryID        *int64
	ParentCategory    string
	ParentCategoryID  *int64
	CategoryPath      string
	CategoryHierarchy []string

	Payee   string
	PayeeID *int64

	Currency string
	Tags     []string

	OriginalAmount       *decimal.Decimal
	OriginalCurrency     string
	OriginalExchangeRate *decimal.Decimal

	SenderAccountID        *int64
	RecipientAccountID     *int64
	SenderTransactionID    *int64
	RecipientTransactionID *int64

	InvestmentHoldingID *int64
	NumberOfShares      *decimal.Decimal
	PricePerShare       *decimal.Decimal
	Fee                 *decimal.Decimal
}

// IsTransfer reports a transfer between the user's accounts.
func (t Transaction) IsTransfer() bool { return t.Type.IsTransfer() }

// IsExpense reports money leaving the user's accounts, transfers excluded.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative() && !t.IsTransfer()
}

// IsUncategorized reports a transaction without a usable category.
func (t Transaction) IsUncategorized() bool {
	c := strings.TrimSpace(t.Category)
	return c == "" || c == Uncategorized
}

// HasCurrencyConversion reports whether the row records an amount in a
// currency other than the account's.
func (t Transaction) HasCurrencyConversion() bool {
	if t.OriginalAmount == nil || t.OriginalCurrency == "" {
		return false
	}
	return !strings.EqualFold(t.OriginalCurrency, t.Currency)
}

// MatchesCategory reports whether name equals the leaf, the root or any level
// of the hierarchy, ignoring case.
func (t Transaction) MatchesCategory(name string) bool {
	if strings.EqualFold(t.Category, name) || strings.EqualFold(t.ParentCategory, name) {
		return true
	}
	for _, h := range t.CategoryHierarchy {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}

// RootCategory is the top of the hierarchy, or the category itself.
func (t Transaction) RootCategory() string {
	if t.ParentCategory != "" {
		return t.ParentCategory
	}
	return t.Category
}
