package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/moneywiz-analytics/internal/database"
	"github.com/jask/moneywiz-analytics/internal/database/repository"
	"github.com/jask/moneywiz-analytics/internal/testdata"
)

func newDB(t *testing.T) (*sql.DB, *testdata.Builder) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "moneywiz.sqlite")
	require.NoError(t, database.RunMigrations(dbPath))
	db, err := database.Open(dbPath, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, testdata.NewBuilder(db)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestAccountRepo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, b := newDB(t)

	checking, err := b.Account(ctx, database.EntityBankChequeAccount, "Checking", "USD", 100)
	require.NoError(t, err)
	_, err = b.Account(ctx, database.EntityCashAccount, "Wallet", "CRC", 0)
	require.NoError(t, err)
	_, err = b.Transaction(ctx, testdata.Tx{Entity: database.EntityWithdraw, AccountID: checking, Amount: -30.5, Date: day(2024, 1, 5)})
	require.NoError(t, err)
	_, err = b.Transaction(ctx, testdata.Tx{Entity: database.EntityDeposit, AccountID: checking, Amount: 10, Date: day(2024, 1, 6)})
	require.NoError(t, err)
	_, err = b.Transaction(ctx, testdata.Tx{Entity: database.EntityReconcile, AccountID: checking, Amount: 999, Date: day(2024, 1, 7)})
	require.NoError(t, err)

	repo := repository.NewAccountRepo(db)
	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Checking", list[0].Name)
	require.Equal(t, "100", list[0].OpeningBalance.String())

	got, err := repo.Get(ctx, checking)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "USD", got.Currency)

	byGID, err := repo.GetByGID(ctx, got.GID)
	require.NoError(t, err)
	require.Equal(t, checking, byGID.ID)

	missing, err := repo.Get(ctx, 9999)
	require.NoError(t, err)
	require.Nil(t, missing)

	code, err := repo.Currency(ctx, checking)
	require.NoError(t, err)
	require.Equal(t, "USD", code)
	code, err = repo.Currency(ctx, 9999)
	require.NoError(t, err)
	require.Empty(t, code)

	balances, err := repo.Balances(ctx)
	require.NoError(t, err)
	require.Equal(t, "-20.5", balances[checking].String())

	names, err := repo.EntityNames(ctx)
	require.NoError(t, err)
	require.Equal(t, "CreditCardAccount", names[database.EntityCreditCardAccount])
}

func TestCategoryRepoUsage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, b := newDB(t)

	food, err := b.Category(ctx, "Food", 0)
	require.NoError(t, err)
	groceries, err := b.Category(ctx, "Groceries", food)
	require.NoError(t, err)
	once, err := b.Category(ctx, "Once", 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := b.Transaction(ctx, testdata.Tx{Entity: database.EntityWithdraw, Amount: -10, Date: day(2024, 3, 1+i), CategoryID: groceries})
		require.NoError(t, err)
	}
	_, err = b.Transaction(ctx, testdata.Tx{Entity: database.EntityDeposit, Amount: 30, Date: day(2024, 3, 10), CategoryID: groceries})
	require.NoError(t, err)
	_, err = b.Transaction(ctx, testdata.Tx{Entity: database.EntityInvestmentBuy, Amount: -500, Date: day(2024, 3, 11), CategoryID: groceries})
	require.NoError(t, err)
	_, err = b.Transaction(ctx, testdata.Tx{Entity: database.EntityWithdraw, Amount: -5, Date: day(2024, 3, 12), CategoryID: once})
	require.NoError(t, err)
	_, err = b.Transaction(ctx, testdata.Tx{Entity: database.EntityWithdraw, Amount: -5, Date: day(2022, 3, 12), CategoryID: once})
	require.NoError(t, err)

	repo := repository.NewCategoryRepo(db)

	c, err := repo.Get(ctx, groceries)
	require.NoError(t, err)
	require.Equal(t, "Groceries", c.Name)
	require.NotNil(t, c.ParentID)
	require.Equal(t, food, *c.ParentID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	usage, err := repo.UsagePatterns(ctx, day(2023, 6, 1), 2)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	require.Equal(t, groceries, usage[0].CategoryID)
	require.Equal(t, 4, usage[0].Count)
	require.InDelta(t, 0.25, usage[0].PositiveRatio, 1e-9)
	require.InDelta(t, 15, usage[0].AvgAbsAmount, 1e-9)
	require.True(t, usage[0].FirstSeen.Equal(day(2024, 3, 1)))
	require.True(t, usage[0].LastSeen.Equal(day(2024, 3, 10)))

	ents, err := repo.EntityUsage(ctx, groceries)
	require.NoError(t, err)
	require.Len(t, ents, 2)
	require.Equal(t, database.EntityWithdraw, ents[0].Entity)
	require.Equal(t, 3, ents[0].Count)
	require.InDelta(t, 0, ents[0].PositiveRatio, 1e-9)

	n, err := repo.CountTransactions(ctx, groceries)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	n, err = repo.CountTransactions(ctx, 424242)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestTransactionRepoList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, b := newDB(t)

	acct, err := b.Account(ctx, database.EntityBankChequeAccount, "Checking", "USD", 0)
	require.NoError(t, err)
	other, err := b.Account(ctx, database.EntityBankChequeAccount, "Other", "EUR", 0)
	require.NoError(t, err)
	payee, err := b.Payee(ctx, "Shop")
	require.NoError(t, err)
	tag, err := b.Tag(ctx, "trip")
	require.NoError(t, err)

	first, err := b.Transaction(ctx, testdata.Tx{Entity: database.EntityWithdraw, AccountID: acct, PayeeID: payee, Amount: -12.34, Date: day(2024, 1, 5), Description: "coffee", TagIDs: []int64{tag}})
	require.NoError(t, err)
	_, err = b.Transaction(ctx, testdata.Tx{Entity: database.EntityDeposit, AccountID: acct, Amount: 100, Date: day(2024, 1, 20)})
	require.NoError(t, err)
	_, err = b.Transaction(ctx, testdata.Tx{Entity: database.EntityTransferIn, AccountID: other, Amount: 50, Date: day(2024, 2, 3), OriginalAmount: 45, OriginalCurrency: "EUR"})
	require.NoError(t, err)

	repo := repository.NewTransactionRepo(db)

	all, err := repo.List(ctx, repository.TransactionFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.True(t, all[0].Date.After(all[1].Date))
	require.Equal(t, "EUR", all[0].OriginalCurrency)
	require.True(t, all[0].OriginalAmount.Valid)

	ranged, err := repo.List(ctx, repository.TransactionFilters{From: day(2024, 1, 1), To: day(2024, 1, 31)})
	require.NoError(t, err)
	require.Len(t, ranged, 2)

	withdrawals, err := repo.List(ctx, repository.TransactionFilters{Entities: []int{database.EntityWithdraw}})
	require.NoError(t, err)
	require.Len(t, withdrawals, 1)
	require.Equal(t, "-12.34", withdrawals[0].Amount.String())
	require.Equal(t, "coffee", withdrawals[0].Description)
	require.Equal(t, payee, *withdrawals[0].PayeeID)
	require.True(t, withdrawals[0].Date.Equal(day(2024, 1, 5)))

	byAccount, err := repo.List(ctx, repository.TransactionFilters{AccountIDs: []int64{other}})
	require.NoError(t, err)
	require.Len(t, byAccount, 1)

	limited, err := repo.List(ctx, repository.TransactionFilters{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	got, err := repo.Get(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, acct, *got.AccountID)

	notTx, err := repo.Get(ctx, acct)
	require.NoError(t, err)
	require.Nil(t, notTx)

	tags, err := repository.NewTagRepo(db).ForTransaction(ctx, first)
	require.NoError(t, err)
	require.Equal(t, []repository.Tag{{ID: tag, Name: "trip"}}, tags)
}

func TestTagFallbackName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, b := newDB(t)

	tx, err := b.Transaction(ctx, testdata.Tx{Entity: database.EntityWithdraw, Amount: -1, Date: day(2024, 1, 1)})
	require.NoError(t, err)
	tags := repository.NewTagRepo(db)
	require.NoError(t, tags.Attach(ctx, tx, 777))

	got, err := tags.ForTransaction(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, []repository.Tag{{ID: 777, Name: "Tag_777"}}, got)
}

func TestAssignmentRepoLowestWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, b := newDB(t)

	a, err := b.Category(ctx, "A", 0)
	require.NoError(t, err)
	bb, err := b.Category(ctx, "B", 0)
	require.NoError(t, err)
	tx, err := b.Transaction(ctx, testdata.Tx{Entity: database.EntityWithdraw, Amount: -1, Date: day(2024, 1, 1), CategoryID: bb})
	require.NoError(t, err)
	_, err = b.Assignments.Insert(ctx, tx, a)
	require.NoError(t, err)

	repo := repository.NewAssignmentRepo(db)
	got, err := repo.ForTransaction(ctx, tx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, bb, got.CategoryID)
	require.Equal(t, "B", got.CategoryName)

	bare, err := b.Transaction(ctx, testdata.Tx{Entity: database.EntityWithdraw, Amount: -1, Date: day(2024, 1, 1)})
	require.NoError(t, err)
	none, err := repo.ForTransaction(ctx, bare)
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestPayeeRepo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, b := newDB(t)

	id, err := b.Payee(ctx, "Grocer")
	require.NoError(t, err)
	repo := repository.NewPayeeRepo(db)

	p, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Grocer", p.Name)

	p, err = repo.Get(ctx, id+100)
	require.NoError(t, err)
	require.Nil(t, p)
}
