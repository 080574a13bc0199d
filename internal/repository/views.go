package repository

import (
	"context"

	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmoiron/sqlx"
)

// ViewsRepository persists drained view events. Rows are append-only.
type ViewsRepository interface {
	// Insert appends a view row. When the row carries an event id that was
	// already written, nothing is inserted and inserted=false.
	Insert(ctx context.Context, tx *sqlx.Tx, v model.LibraryView) (inserted bool, err error)
	CountByItem(ctx context.Context, itemID int64) (int64, error)
	ListByItem(ctx context.Context, itemID int64, limit int) ([]model.LibraryView, error)
}

type ViewsRepositoryImpl struct {
	db      *sqlx.DB
	dialect Dialect
}

func NewViewsRepository(db *sqlx.DB, dialect Dialect) *ViewsRepositoryImpl {
	return &ViewsRepositoryImpl{db: db, dialect: dialect}
}

var _ ViewsRepository = (*ViewsRepositoryImpl)(nil)

func (r *ViewsRepositoryImpl) insertSQL() string {
	if r.dialect == DialectMySQL {
		return `
		INSERT INTO library_view (event_id, user_id, item_id, viewed_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id
	`
	}
	return `
		INSERT INTO library_view (event_id, user_id, item_id, viewed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING
	`
}

func (r *ViewsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, v model.LibraryView) (bool, error) {
	var inserted bool
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, r.insertSQL(), v.EventID, v.UserID, v.ItemID, v.ViewedAt.UTC())
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n > 0
		return nil
	})
	return inserted, err
}

func (r *ViewsRepositoryImpl) CountByItem(ctx context.Context, itemID int64) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM library_view WHERE item_id = ?`, itemID)
	return n, err
}

func (r *ViewsRepositoryImpl) ListByItem(ctx context.Context, itemID int64, limit int) ([]model.LibraryView, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	var rows []model.LibraryView
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, event_id, user_id, item_id, viewed_at
		  FROM library_view
		 WHERE item_id = ?
		 ORDER BY id DESC
		 LIMIT ?
	`, itemID, limit)
	return rows, err
}
