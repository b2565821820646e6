package database

import (
	"math"
	"time"
)

// Entity tags stored in ZSYNCOBJECT.Z_ENT.
const (
	EntityBankChequeAccount = 10
	EntityBankSavingAccount = 11
	EntityCashAccount       = 12
	EntityCreditCardAccount = 13
	EntityLoanAccount       = 14
	EntityInvestmentAccount = 15
	EntityForexAccount      = 16

	EntityCategory = 19
	EntityPayee    = 28
	EntityTag      = 35

	EntityDeposit            = 37
	EntityInvestmentExchange = 38
	EntityInvestmentBuy      = 40
	EntityInvestmentSell     = 41
	EntityReconcile          = 42
	EntityRefund             = 43
	EntityBudgetTransfer     = 44
	EntityTransferIn         = 45
	EntityTransferOut        = 46
	EntityWithdraw           = 47
)

// AccountEntities are the account rows in entity order.
var AccountEntities = []int{
	EntityBankChequeAccount, EntityBankSavingAccount, EntityCashAccount,
	EntityCreditCardAccount, EntityLoanAccount, EntityInvestmentAccount, EntityForexAccount,
}

// CoreTransactionEntities move money in or out of an account.
var CoreTransactionEntities = []int{EntityDeposit, EntityTransferIn, EntityTransferOut, EntityWithdraw}

// TransactionEntities lists every transaction row type.
var TransactionEntities = []int{
	EntityDeposit, EntityInvestmentExchange, EntityInvestmentBuy, EntityInvestmentSell,
	EntityReconcile, EntityRefund, EntityBudgetTransfer, EntityTransferIn, EntityTransferOut,
	EntityWithdraw,
}

// IsAccountEntity reports whether ent tags an account row.
func IsAccountEntity(ent int) bool {
	return ent >= EntityBankChequeAccount && ent <= EntityForexAccount
}

// CoreDataEpoch is the reference date of Core Data timestamps.
var CoreDataEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// TimeFromCoreData converts seconds since CoreDataEpoch to UTC time, rounded
// to the nanosecond.
func TimeFromCoreData(seconds float64) time.Time {
	return CoreDataEpoch.Add(time.Duration(math.Round(seconds * float64(time.Second))))
}

// CoreDataFromTime is the inverse of TimeFromCoreData.
func CoreDataFromTime(t time.Time) float64 {
	return t.Sub(CoreDataEpoch).Seconds()
}
