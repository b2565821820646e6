package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/moneywiz-analytics/internal/database"
)

// TagRepo reads tags and their transaction links.
type TagRepo struct {
	db DBTX
}

func NewTagRepo(db DBTX) *TagRepo { return &TagRepo{db: db} }

// ForTransaction returns the tags linked to a transaction. Tags without a name
// are reported as Tag_<id>.
func (r *TagRepo) ForTransaction(ctx context.Context, transactionID int64) ([]Tag, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT tl.Z_35TAGS, COALESCE(NULLIF(t.ZNAME2, ''), NULLIF(t.ZNAME, ''))
	FROM Z_36TAGS tl
	LEFT JOIN ZSYNCOBJECT t ON t.Z_PK = tl.Z_35TAGS AND t.Z_ENT = ?
	WHERE tl.Z_36TRANSACTIONS = ?
	ORDER BY tl.Z_35TAGS`, database.EntityTag, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []Tag
	for rows.Next() {
		var t Tag
		var name sql.NullString
		if err := rows.Scan(&t.ID, &name); err != nil {
			return nil, err
		}
		t.Name = name.String
		if !name.Valid {
			t.Name = fmt.Sprintf("Tag_%d", t.ID)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *TagRepo) Insert(ctx context.Context, t Tag) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO ZSYNCOBJECT(Z_ENT, ZNAME2) VALUES (?, ?)`, database.EntityTag, t.Name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *TagRepo) Attach(ctx context.Context, transactionID, tagID int64) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO Z_36TAGS(Z_35TAGS, Z_36TRANSACTIONS) VALUES (?, ?)`, tagID, transactionID)
	return err
}
