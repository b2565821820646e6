package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jask/moneywiz-analytics/internal/database"
)

// AssignmentRepo reads the transaction to category links.
type AssignmentRepo struct {
	db DBTX
}

func NewAssignmentRepo(db DBTX) *AssignmentRepo { return &AssignmentRepo{db: db} }

// ForTransaction returns the assignment with the lowest primary key, so a
// transaction split across several categories always resolves the same way.
// It returns nil when the transaction has no assignment.
func (r *AssignmentRepo) ForTransaction(ctx context.Context, transactionID int64) (*CategoryAssignment, error) {
	var a CategoryAssignment
	var category sql.NullInt64
	var name sql.NullString
	err := r.db.QueryRowContext(ctx, `
	SELECT ca.Z_PK, ca.ZTRANSACTION, ca.ZCATEGORY, COALESCE(c.ZNAME2, c.ZNAME)
	FROM ZCATEGORYASSIGMENT ca
	LEFT JOIN ZSYNCOBJECT c ON c.Z_PK = ca.ZCATEGORY AND c.Z_ENT = ?
	WHERE ca.ZTRANSACTION = ?
	ORDER BY ca.Z_PK
	LIMIT 1`, database.EntityCategory, transactionID).Scan(&a.ID, &a.TransactionID, &category, &name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !category.Valid {
		return nil, nil
	}
	a.CategoryID = category.Int64
	a.CategoryName = name.String
	return &a, nil
}

// Insert links a transaction to a category. Used for fixtures.
func (r *AssignmentRepo) Insert(ctx context.Context, transactionID, categoryID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO ZCATEGORYASSIGMENT(ZTRANSACTION, ZCATEGORY) VALUES (?, ?)`,
		transactionID, categoryID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
