package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jask/moneywiz-analytics/internal/database"
)

// CategoryRepo reads category rows and their usage.
type CategoryRepo struct {
	db DBTX
}

func NewCategoryRepo(db DBTX) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Get(ctx context.Context, id int64) (*Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT Z_PK, ZGID, COALESCE(ZNAME2, ZNAME), ZPARENTCATEGORY
	FROM ZSYNCOBJECT WHERE Z_ENT = ? AND Z_PK = ?`, database.EntityCategory, id)
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT Z_PK, ZGID, COALESCE(ZNAME2, ZNAME), ZPARENTCATEGORY
	FROM ZSYNCOBJECT WHERE Z_ENT = ? ORDER BY COALESCE(ZNAME2, ZNAME), Z_PK`, database.EntityCategory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UsagePatterns summarises every category used at least minCount times by a
// classifiable transaction dated after since.
func (r *CategoryRepo) UsagePatterns(ctx context.Context, since time.Time, minCount int) ([]CategoryUsage, error) {
	args := append(intArgs(ClassifiableEntities), database.CoreDataFromTime(since), minCount)
	rows, err := r.db.QueryContext(ctx, `
	SELECT ca.ZCATEGORY,
	 COUNT(*),
	 AVG(CASE WHEN t.ZAMOUNT1 > 0 THEN 1.0 ELSE 0.0 END),
	 AVG(ABS(t.ZAMOUNT1)),
	 MIN(CAST(t.ZDATE1 AS REAL)),
	 MAX(CAST(t.ZDATE1 AS REAL))
	FROM ZCATEGORYASSIGMENT ca
	JOIN ZSYNCOBJECT t ON t.Z_PK = ca.ZTRANSACTION
	WHERE t.Z_ENT IN (`+placeholders(len(ClassifiableEntities))+`)
	 AND t.ZDATE1 > ?
	 AND ca.ZCATEGORY IS NOT NULL
	GROUP BY ca.ZCATEGORY
	HAVING COUNT(*) >= ?
	ORDER BY ca.ZCATEGORY`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryUsage
	for rows.Next() {
		var u CategoryUsage
		var avgAbs, first, last sql.NullFloat64
		if err := rows.Scan(&u.CategoryID, &u.Count, &u.PositiveRatio, &avgAbs, &first, &last); err != nil {
			return nil, err
		}
		u.AvgAbsAmount = avgAbs.Float64
		if first.Valid {
			u.FirstSeen = database.TimeFromCoreData(first.Float64)
		}
		if last.Valid {
			u.LastSeen = database.TimeFromCoreData(last.Float64)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// EntityUsage counts how each classifiable entity uses the category, most
// frequent first.
func (r *CategoryRepo) EntityUsage(ctx context.Context, categoryID int64) ([]EntityUsage, error) {
	args := append([]interface{}{categoryID}, intArgs(ClassifiableEntities)...)
	rows, err := r.db.QueryContext(ctx, `
	SELECT t.Z_ENT,
	 COUNT(*) AS usage_count,
	 AVG(CASE WHEN t.ZAMOUNT1 > 0 THEN 1.0 ELSE 0.0 END)
	FROM ZCATEGORYASSIGMENT ca
	JOIN ZSYNCOBJECT t ON t.Z_PK = ca.ZTRANSACTION
	WHERE ca.ZCATEGORY = ?
	 AND t.Z_ENT IN (`+placeholders(len(ClassifiableEntities))+`)
	GROUP BY t.Z_ENT
	ORDER BY usage_count DESC, t.Z_ENT`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EntityUsage
	for rows.Next() {
		var u EntityUsage
		if err := rows.Scan(&u.Entity, &u.Count, &u.PositiveRatio); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CountTransactions counts classifiable transactions assigned to the category.
func (r *CategoryRepo) CountTransactions(ctx context.Context, categoryID int64) (int, error) {
	args := append([]interface{}{categoryID}, intArgs(ClassifiableEntities)...)
	var n int
	err := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*)
	FROM ZCATEGORYASSIGMENT ca
	JOIN ZSYNCOBJECT t ON t.Z_PK = ca.ZTRANSACTION
	WHERE ca.ZCATEGORY = ?
	 AND t.Z_ENT IN (`+placeholders(len(ClassifiableEntities))+`)`, args...).Scan(&n)
	return n, err
}

// Insert writes a category row and returns its primary key. Used for fixtures.
func (r *CategoryRepo) Insert(ctx context.Context, c Category) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO ZSYNCOBJECT(Z_ENT, ZGID, ZNAME2, ZPARENTCATEGORY) VALUES (?, ?, ?, ?);
	`, database.EntityCategory, c.GID, c.Name, c.ParentID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanCategory(row scanner) (Category, error) {
	var c Category
	var gid, name sql.NullString
	var parent sql.NullInt64
	if err := row.Scan(&c.ID, &gid, &name, &parent); err != nil {
		return Category{}, err
	}
	c.GID = gid.String
	c.Name = name.String
	c.ParentID = int64Ptr(parent)
	return c, nil
}
