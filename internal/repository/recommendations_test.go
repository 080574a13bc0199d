package repository_test

import (
	"context"
	"testing"

	"github.com/jmehdipour/agenthub/internal/repository"
	"github.com/jmehdipour/agenthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendationAggregates(t *testing.T) {
	ctx := context.Background()
	dbx := testutil.NewSQLite(t)

	dbx.MustExec(`INSERT INTO library_item (id, title, bias_weight) VALUES (1, 'Cold calls', 1.5), (2, 'Closing', 0), (3, 'Old deck', 0)`)
	dbx.MustExec(`UPDATE library_item SET archived = 1 WHERE id = 3`)
	dbx.MustExec(`INSERT INTO library_view (user_id, item_id, viewed_at) VALUES (1, 1, '2024-01-01 00:00:00'), (2, 1, '2024-01-01 00:00:00'), (3, 2, '2024-01-01 00:00:00')`)
	dbx.MustExec(`INSERT INTO library_rating (item_id, user_id, overall) VALUES (1, 1, 4), (1, 2, 5)`)
	dbx.MustExec(`INSERT INTO quiz_attempt (item_id, user_id, score) VALUES (2, 1, 8)`)
	dbx.MustExec(`INSERT INTO team_member (team_id, user_id) VALUES (10, 7)`)
	dbx.MustExec(`INSERT INTO library_bias (item_id, team_id, weight) VALUES (2, 10, 3), (2, 11, 100)`)
	dbx.MustExec(`INSERT INTO library_bias (item_id, user_id, weight) VALUES (1, 7, 0.5), (1, 8, 100)`)

	aggs, err := repository.NewRecommendationsRepository(dbx).Aggregates(ctx, 7)
	require.NoError(t, err)
	require.Len(t, aggs, 2)

	a := aggs[0]
	assert.Equal(t, int64(1), a.ItemID)
	assert.Equal(t, int64(2), a.Views)
	assert.InDelta(t, 4.5, a.AvgRating, 1e-9)
	assert.InDelta(t, 0, a.AvgQuiz, 1e-9)
	assert.InDelta(t, 1.5, a.ItemBias, 1e-9)
	assert.InDelta(t, 0, a.TeamBias, 1e-9)
	assert.InDelta(t, 0.5, a.UserBias, 1e-9)

	b := aggs[1]
	assert.Equal(t, int64(2), b.ItemID)
	assert.Equal(t, int64(1), b.Views)
	assert.InDelta(t, 8, b.AvgQuiz, 1e-9)
	assert.InDelta(t, 3, b.TeamBias, 1e-9)
	assert.InDelta(t, 0, b.UserBias, 1e-9)
}
