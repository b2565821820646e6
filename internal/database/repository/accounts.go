package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/jask/moneywiz-analytics/internal/database"
)

// AccountRepo reads account rows.
type AccountRepo struct {
	db DBTX
}

func NewAccountRepo(db DBTX) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountColumns = `Z_PK, Z_ENT, ZGID, ZNAME, ZCURRENCYNAME, ZOPENINGBALANCE, ZARCHIVED,
	ZINSTITUTIONNAME, ZLASTFOURDIGITS, CAST(ZOBJECTCREATIONDATE AS REAL)`

func (r *AccountRepo) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM ZSYNCOBJECT
	WHERE Z_ENT IN (`+placeholders(len(database.AccountEntities))+`)
	ORDER BY ZNAME, Z_PK`, intArgs(database.AccountEntities)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepo) Get(ctx context.Context, id int64) (*Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM ZSYNCOBJECT
	WHERE Z_PK = ? AND Z_ENT BETWEEN ? AND ?`, id, database.EntityBankChequeAccount, database.EntityForexAccount)
	return getAccount(row)
}

func (r *AccountRepo) GetByGID(ctx context.Context, gid string) (*Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM ZSYNCOBJECT
	WHERE ZGID = ? AND Z_ENT BETWEEN ? AND ?`, gid, database.EntityBankChequeAccount, database.EntityForexAccount)
	return getAccount(row)
}

// Currency returns the account's currency code, or "" when the account or
// its currency is unknown.
func (r *AccountRepo) Currency(ctx context.Context, id int64) (string, error) {
	var code sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT ZCURRENCYNAME FROM ZSYNCOBJECT
	WHERE Z_PK = ? AND Z_ENT BETWEEN ? AND ?`, id, database.EntityBankChequeAccount, database.EntityForexAccount).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return code.String, nil
}

// Balances sums core transaction amounts per account. Opening balances are
// not included.
func (r *AccountRepo) Balances(ctx context.Context) (map[int64]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT ZACCOUNT2, COALESCE(SUM(ZAMOUNT1), 0)
	FROM ZSYNCOBJECT
	WHERE Z_ENT IN (`+placeholders(len(database.CoreTransactionEntities))+`) AND ZACCOUNT2 IS NOT NULL
	GROUP BY ZACCOUNT2`, intArgs(database.CoreTransactionEntities)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]decimal.Decimal{}
	for rows.Next() {
		var id int64
		var sum decimal.NullDecimal
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		out[id] = decimalOrZero(sum)
	}
	return out, rows.Err()
}

// EntityNames maps entity tags to their Core Data class names.
func (r *AccountRepo) EntityNames(ctx context.Context) (map[int]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT Z_ENT, Z_NAME FROM Z_PRIMARYKEY`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int]string{}
	for rows.Next() {
		var ent int
		var name sql.NullString
		if err := rows.Scan(&ent, &name); err != nil {
			return nil, err
		}
		out[ent] = name.String
	}
	return out, rows.Err()
}

// Insert writes an account row and returns its primary key. Used for fixtures.
func (r *AccountRepo) Insert(ctx context.Context, a Account) (int64, error) {
	var created interface{}
	if a.CreatedAt != nil {
		created = database.CoreDataFromTime(*a.CreatedAt)
	}
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO ZSYNCOBJECT(Z_ENT, ZGID, ZNAME, ZCURRENCYNAME, ZOPENINGBALANCE, ZARCHIVED,
	 ZINSTITUTIONNAME, ZLASTFOURDIGITS, ZOBJECTCREATIONDATE)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, a.Entity, a.GID, a.Name, a.Currency, a.OpeningBalance.InexactFloat64(), a.Archived,
		a.Institution, a.LastFourDigits, created)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func getAccount(row *sql.Row) (*Account, error) {
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func scanAccount(row scanner) (Account, error) {
	var a Account
	var gid, name, currency, institution, lastFour sql.NullString
	var opening decimal.NullDecimal
	var archived sql.NullInt64
	var created sql.NullFloat64
	if err := row.Scan(&a.ID, &a.Entity, &gid, &name, &currency, &opening, &archived,
		&institution, &lastFour, &created); err != nil {
		return Account{}, err
	}
	a.GID = gid.String
	a.Name = name.String
	a.Currency = currency.String
	a.OpeningBalance = decimalOrZero(opening)
	a.Archived = archived.Int64 != 0
	a.Institution = institution.String
	a.LastFourDigits = lastFour.String
	if created.Valid {
		ts := database.TimeFromCoreData(created.Float64)
		a.CreatedAt = &ts
	}
	return a, nil
}
