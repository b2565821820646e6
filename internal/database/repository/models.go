package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents an account row (entities 10-16).
type Account struct {
	ID             int64
	GID            string
	Entity         int
	Name           string
	Currency       string
	OpeningBalance decimal.Decimal
	Archived       bool
	Institution    string
	LastFourDigits string
	CreatedAt      *time.Time
}

// Category represents a category row.
type Category struct {
	ID       int64
	GID      string
	Name     string
	ParentID *int64
}

// Payee represents a payee row.
type Payee struct {
	ID   int64
	Name string
}

// Tag represents a tag row.
type Tag struct {
	ID   int64
	Name string
}

// Transaction represents a raw transaction row.
type Transaction struct {
	ID          int64
	GID         string
	Entity      int
	AccountID   *int64
	PayeeID     *int64
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	Notes       string
	Reconciled  bool

	OriginalAmount       decimal.NullDecimal
	OriginalCurrency     string
	OriginalExchangeRate decimal.NullDecimal

	SenderAccountID        *int64
	RecipientAccountID     *int64
	SenderTransactionID    *int64
	RecipientTransactionID *int64

	InvestmentHoldingID *int64
	NumberOfShares      decimal.NullDecimal
	PricePerShare       decimal.NullDecimal
	Fee                 decimal.NullDecimal
}

// CategoryAssignment links a transaction to a category.
type CategoryAssignment struct {
	ID            int64
	TransactionID int64
	CategoryID    int64
	CategoryName  string
}

// CategoryUsage summarises how a category was used in a time window.
type CategoryUsage struct {
	CategoryID    int64
	Count         int
	PositiveRatio float64
	AvgAbsAmount  float64
	FirstSeen     time.Time
	LastSeen      time.Time
}

// EntityUsage counts how often a transaction entity carries a category.
type EntityUsage struct {
	Entity        int
	Count         int
	PositiveRatio float64
}
