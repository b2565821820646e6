package domain

import (
	"fmt"
	"strings"

	"github.com/jask/moneywiz-analytics/internal/database"
)

// TransactionType names the kind of a transaction row.
type TransactionType string

const (
	TypeDeposit            TransactionType = "deposit"
	TypeWithdraw           TransactionType = "withdraw"
	TypeTransferIn         TransactionType = "transfer_in"
	TypeTransferOut        TransactionType = "transfer_out"
	TypeBudgetTransfer     TransactionType = "transfer_budget"
	TypeInvestmentBuy      TransactionType = "investment_buy"
	TypeInvestmentSell     TransactionType = "investment_sell"
	TypeInvestmentExchange TransactionType = "investment_exchange"
	TypeRefund             TransactionType = "refund"
	TypeReconcile          TransactionType = "reconcile"
	TypeUnknown            TransactionType = "unknown"
)

var entityTypes = map[int]TransactionType{
	database.EntityDeposit:            TypeDeposit,
	database.EntityInvestmentExchange: TypeInvestmentExchange,
	database.EntityInvestmentBuy:      TypeInvestmentBuy,
	database.EntityInvestmentSell:     TypeInvestmentSell,
	database.EntityReconcile:          TypeReconcile,
	database.EntityRefund:             TypeRefund,
	database.EntityBudgetTransfer:     TypeBudgetTransfer,
	database.EntityTransferIn:         TypeTransferIn,
	database.EntityTransferOut:        TypeTransferOut,
	database.EntityWithdraw:           TypeWithdraw,
}

// TypeFromEntity maps an entity tag to its type; unmapped tags are TypeUnknown.
func TypeFromEntity(ent int) TransactionType {
	if t, ok := entityTypes[ent]; ok {
		return t
	}
	return TypeUnknown
}

// Entity returns the entity tag for t.
func (t TransactionType) Entity() (int, bool) {
	for ent, typ := range entityTypes {
		if typ == t {
			return ent, true
		}
	}
	return 0, false
}

// ParseTransactionType accepts the type names above, case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := t.Entity(); !ok {
		return TypeUnknown, fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

// IsTransfer reports movement between the user's own accounts.
func (t TransactionType) IsTransfer() bool {
	return t == TypeTransferIn || t == TypeTransferOut
}

// IsAdjustment reports balance reconciliation rows.
func (t TransactionType) IsAdjustment() bool {
	return t == TypeReconcile
}

// IsInvestment reports investment activity.
func (t TransactionType) IsInvestment() bool {
	return t == TypeInvestmentBuy || t == TypeInvestmentSell || t == TypeInvestmentExchange
}
