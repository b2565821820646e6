package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jask/moneywiz-analytics/internal/database"
)

// PayeeRepo reads payee rows.
type PayeeRepo struct {
	db DBTX
}

func NewPayeeRepo(db DBTX) *PayeeRepo { return &PayeeRepo{db: db} }

func (r *PayeeRepo) Get(ctx context.Context, id int64) (*Payee, error) {
	var p Payee
	var name sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT Z_PK, ZNAME FROM ZSYNCOBJECT WHERE Z_ENT = ? AND Z_PK = ?`,
		database.EntityPayee, id).Scan(&p.ID, &name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Name = name.String
	return &p, nil
}

func (r *PayeeRepo) Insert(ctx context.Context, p Payee) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO ZSYNCOBJECT(Z_ENT, ZNAME) VALUES (?, ?)`, database.EntityPayee, p.Name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
