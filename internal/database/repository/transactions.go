package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/moneywiz-analytics/internal/database"
)

// TransactionFilters defines list filters.
type TransactionFilters struct {
	From       time.Time // zero = unbounded
	To         time.Time // zero = unbounded, inclusive
	Entities   []int     // empty = every transaction entity
	AccountIDs []int64
	Limit      int // 0 = no limit
}

// TransactionRepo reads transaction rows.
type TransactionRepo struct {
	db DBTX
}

func NewTransactionRepo(db DBTX) *TransactionRepo { return &TransactionRepo{db: db} }

// CAST keeps the driver from turning TIMESTAMP columns into Unix-epoch times.
const transactionColumns = `Z_PK, Z_ENT, ZGID, ZACCOUNT2, ZPAYEE2, ZAMOUNT1, CAST(ZDATE1 AS REAL),
	ZDESC2, ZNOTES1, ZRECONCILED, ZORIGINALAMOUNT, ZORIGINALCURRENCY, ZORIGINALEXCHANGERATE,
	ZSENDERACCOUNT, ZRECIPIENTACCOUNT1, ZSENDERTRANSACTION, ZRECIPIENTTRANSACTION,
	ZINVESTMENTHOLDING, ZNUMBEROFSHARES1, ZPRICEPERSHARE1, ZFEE2`

func (r *TransactionRepo) List(ctx context.Context, f TransactionFilters) ([]Transaction, error) {
	entities := f.Entities
	if len(entities) == 0 {
		entities = database.TransactionEntities
	}
	where := []string{"Z_ENT IN (" + placeholders(len(entities)) + ")"}
	args := intArgs(entities)

	if !f.From.IsZero() {
		where = append(where, "ZDATE1 >= ?")
		args = append(args, database.CoreDataFromTime(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "ZDATE1 <= ?")
		args = append(args, database.CoreDataFromTime(f.To))
	}
	if len(f.AccountIDs) > 0 {
		where = append(where, "ZACCOUNT2 IN ("+placeholders(len(f.AccountIDs))+")")
		args = append(args, int64Args(f.AccountIDs)...)
	}

	query := "SELECT " + transactionColumns + " FROM ZSYNCOBJECT WHERE " + strings.Join(where, " AND ") +
		" ORDER BY ZDATE1 DESC, Z_PK DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) Get(ctx context.Context, id int64) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM ZSYNCOBJECT WHERE Z_PK = ? AND Z_ENT IN ("+
		placeholders(len(database.TransactionEntities))+")", append([]interface{}{id}, intArgs(database.TransactionEntities)...)...)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Insert writes a transaction row and returns its primary key. Used for fixtures.
func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO ZSYNCOBJECT(
	 Z_ENT, ZGID, ZACCOUNT2, ZPAYEE2, ZAMOUNT1, ZDATE1, ZDESC2, ZNOTES1, ZRECONCILED,
	 ZORIGINALAMOUNT, ZORIGINALCURRENCY, ZORIGINALEXCHANGERATE,
	 ZSENDERACCOUNT, ZRECIPIENTACCOUNT1, ZSENDERTRANSACTION, ZRECIPIENTTRANSACTION,
	 ZINVESTMENTHOLDING, ZNUMBEROFSHARES1, ZPRICEPERSHARE1, ZFEE2)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`,
		t.Entity, t.GID, t.AccountID, t.PayeeID, t.Amount.InexactFloat64(), database.CoreDataFromTime(t.Date),
		t.Description, t.Notes, t.Reconciled,
		nullFloat(t.OriginalAmount), nullString(t.OriginalCurrency), nullFloat(t.OriginalExchangeRate),
		t.SenderAccountID, t.RecipientAccountID, t.SenderTransactionID, t.RecipientTransactionID,
		t.InvestmentHoldingID, nullFloat(t.NumberOfShares), nullFloat(t.PricePerShare), nullFloat(t.Fee))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var gid, desc, notes, origCurrency sql.NullString
	var account, payee, sender, recipient, senderTx, recipientTx, holding sql.NullInt64
	var amount decimal.NullDecimal
	var date sql.NullFloat64
	var reconciled sql.NullInt64
	if err := row.Scan(&t.ID, &t.Entity, &gid, &account, &payee, &amount, &date,
		&desc, &notes, &reconciled, &t.OriginalAmount, &origCurrency, &t.OriginalExchangeRate,
		&sender, &recipient, &senderTx, &recipientTx,
		&holding, &t.NumberOfShares, &t.PricePerShare, &t.Fee); err != nil {
		return Transaction{}, err
	}
	t.GID = gid.String
	t.AccountID = int64Ptr(account)
	t.PayeeID = int64Ptr(payee)
	t.Amount = decimalOrZero(amount)
	if date.Valid {
		t.Date = database.TimeFromCoreData(date.Float64)
	}
	t.Description = desc.String
	t.Notes = notes.String
	t.Reconciled = reconciled.Int64 != 0
	t.OriginalCurrency = origCurrency.String
	t.SenderAccountID = int64Ptr(sender)
	t.RecipientAccountID = int64Ptr(recipient)
	t.SenderTransactionID = int64Ptr(senderTx)
	t.RecipientTransactionID = int64Ptr(recipientTx)
	t.InvestmentHoldingID = int64Ptr(holding)
	return t, nil
}

func nullFloat(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
