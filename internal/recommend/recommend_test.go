package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	a := model.ItemAggregate{Views: 10, AvgRating: 4.5, AvgQuiz: 7, ItemBias: 1, TeamBias: 0.5, UserBias: -2}
	// 10*0.2 + 4.5*2 + 7*1 + 1 + 0.5 - 2
	assert.InDelta(t, 17.5, Score(a, DefaultWeights()), 1e-9)
}

func TestRankOrdersByScoreThenID(t *testing.T) {
	aggs := []model.ItemAggregate{
		{ItemID: 3, Views: 5},
		{ItemID: 1, Views: 5},
		{ItemID: 2, AvgRating: 5},
		{ItemID: 4},
	}
	got := Rank(aggs, DefaultWeights())

	ids := make([]int64, 0, len(got))
	for _, it := range got {
		ids = append(ids, it.ItemID)
	}
	assert.Equal(t, []int64{2, 1, 3, 4}, ids)
	assert.InDelta(t, 10.0, got[0].Score, 1e-9)
}

type stubRepo struct {
	aggs []model.ItemAggregate
	err  error
}

func (s stubRepo) Aggregates(context.Context, int64) ([]model.ItemAggregate, error) {
	return s.aggs, s.err
}

func TestServiceLimits(t *testing.T) {
	svc := NewService(stubRepo{aggs: []model.ItemAggregate{{ItemID: 1}, {ItemID: 2, Views: 1}, {ItemID: 3, Views: 2}}}, DefaultWeights())

	items, err := svc.For(context.Background(), 7, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].ItemID)

	all, err := svc.For(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = NewService(stubRepo{err: errors.New("db")}, DefaultWeights()).For(context.Background(), 7, 1)
	assert.Error(t, err)
}
