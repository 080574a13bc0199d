package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmoiron/sqlx"
)

// ProgressRepository keeps one row per (user, item); writes are last-write-wins.
type ProgressRepository interface {
	Upsert(ctx context.Context, tx *sqlx.Tx, p model.LibraryProgress) error
	Get(ctx context.Context, userID, itemID int64) (*model.LibraryProgress, error)
	Count(ctx context.Context) (int64, error)
}

type ProgressRepositoryImpl struct {
	db      *sqlx.DB
	dialect Dialect
}

func NewProgressRepository(db *sqlx.DB, dialect Dialect) *ProgressRepositoryImpl {
	return &ProgressRepositoryImpl{db: db, dialect: dialect}
}

var _ ProgressRepository = (*ProgressRepositoryImpl)(nil)

func (r *ProgressRepositoryImpl) upsertSQL() string {
	if r.dialect == DialectMySQL {
		return `
		INSERT INTO library_progress
		    (user_id, item_id, position, duration, percent, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		    position   = VALUES(position),
		    duration   = VALUES(duration),
		    percent    = VALUES(percent),
		    updated_at = VALUES(updated_at)
	`
	}
	return `
		INSERT INTO library_progress
		    (user_id, item_id, position, duration, percent, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, item_id) DO UPDATE SET
		    position   = excluded.position,
		    duration   = excluded.duration,
		    percent    = excluded.percent,
		    updated_at = excluded.updated_at
	`
}

// Upsert creates the (user, item) row or overwrites its position, duration,
// percent and updated_at in place.
func (r *ProgressRepositoryImpl) Upsert(ctx context.Context, tx *sqlx.Tx, p model.LibraryProgress) error {
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, r.upsertSQL(),
			p.UserID, p.ItemID, p.Position, p.Duration, p.Percent, p.UpdatedAt.UTC(),
		)
		return err
	})
}

func (r *ProgressRepositoryImpl) Get(ctx context.Context, userID, itemID int64) (*model.LibraryProgress, error) {
	var p model.LibraryProgress
	err := r.db.GetContext(ctx, &p, `
		SELECT id, user_id, item_id, position, duration, percent, updated_at
		  FROM library_progress
		 WHERE user_id = ? AND item_id = ?
	`, userID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM library_progress`)
	return n, err
}
