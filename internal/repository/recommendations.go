package repository

import (
	"context"

	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmoiron/sqlx"
)

// RecommendationsRepository reads the per-item counters used to rank the library for a user.
type RecommendationsRepository interface {
	Aggregates(ctx context.Context, userID int64) ([]model.ItemAggregate, error)
}

type RecommendationsRepositoryImpl struct {
	db *sqlx.DB
}

func NewRecommendationsRepository(db *sqlx.DB) *RecommendationsRepositoryImpl {
	return &RecommendationsRepositoryImpl{db: db}
}

var _ RecommendationsRepository = (*RecommendationsRepositoryImpl)(nil)

// Aggregates returns one row per non-archived item. Team bias sums the
// weights set for any team the user belongs to; user bias sums the weights
// set for the user directly.
func (r *RecommendationsRepositoryImpl) Aggregates(ctx context.Context, userID int64) ([]model.ItemAggregate, error) {
	const q = `
		SELECT i.id    AS item_id,
		       i.title AS title,
		       (SELECT COUNT(*) FROM library_view v WHERE v.item_id = i.id)                  AS views,
		       COALESCE((SELECT AVG(r.overall) FROM library_rating r WHERE r.item_id = i.id), 0) AS avg_rating,
		       COALESCE((SELECT AVG(q.score) FROM quiz_attempt q WHERE q.item_id = i.id), 0)     AS avg_quiz,
		       i.bias_weight AS item_bias,
		       COALESCE((SELECT SUM(b.weight)
		                   FROM library_bias b
		                   JOIN team_member tm ON tm.team_id = b.team_id
		                  WHERE b.item_id = i.id AND tm.user_id = ?), 0) AS team_bias,
		       COALESCE((SELECT SUM(b.weight)
		                   FROM library_bias b
		                  WHERE b.item_id = i.id AND b.user_id = ?), 0)  AS user_bias
		  FROM library_item i
		 WHERE i.archived = 0
		 ORDER BY i.id
	`
	var rows []model.ItemAggregate
	if err := r.db.SelectContext(ctx, &rows, q, userID, userID); err != nil {
		return nil, err
	}
	return rows, nil
}
