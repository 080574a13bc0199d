package repository

import (
	"context"
	"time"

	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHViewsRepository reads daily view counts from ClickHouse. The
// agenthub.library_views table is created by migrations/clickhouse and
// filled from library_view by an external CDC pipeline; an empty table
// yields empty reports.
type CHViewsRepository interface {
	DailyViews(ctx context.Context, itemID int64, from, to time.Time, limit, offset int) ([]model.DailyViews, error)
}

type chViewsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHViewsRepository(ch *sqlx.DB) CHViewsRepository {
	return &chViewsRepository{ch: ch}
}

// DailyViews counts views per (day, item) in [from, to). itemID 0 means every item.
func (r *chViewsRepository) DailyViews(ctx context.Context, itemID int64, from, to time.Time, limit, offset int) ([]model.DailyViews, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT toDate(viewed_at) AS day, item_id, count() AS views
		FROM agenthub.library_views
		WHERE viewed_at >= ? AND viewed_at < ?
	`
	args := []any{from.UTC(), to.UTC()}

	if itemID > 0 {
		q += " AND item_id = ?"
		args = append(args, itemID)
	}

	q += " GROUP BY day, item_id ORDER BY day DESC, views DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.DailyViews
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
