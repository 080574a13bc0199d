package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmehdipour/agenthub/internal/repository"
	"github.com/jmehdipour/agenthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressUpsertIsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProgressRepository(testutil.NewSQLite(t), repository.DialectSQLite)

	got, err := repo.Get(ctx, 7, 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	first := model.LibraryProgress{UserID: 7, ItemID: 42, Position: 120, Duration: 300, Percent: 40, UpdatedAt: time.Unix(1700000000, 0)}
	require.NoError(t, repo.Upsert(ctx, nil, first))
	require.NoError(t, repo.Upsert(ctx, nil, first))

	got, err = repo.Get(ctx, 7, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	firstID := got.ID
	assert.Equal(t, int64(120), got.Position)
	assert.Equal(t, int64(300), got.Duration)

	second := first
	second.Position = 125
	second.Percent = model.Percent(125, 300)
	second.UpdatedAt = time.Unix(1700000005, 0)
	require.NoError(t, repo.Upsert(ctx, nil, second))

	got, err = repo.Get(ctx, 7, 42)
	require.NoError(t, err)
	assert.Equal(t, firstID, got.ID)
	assert.Equal(t, int64(125), got.Position)
	assert.True(t, got.UpdatedAt.Equal(time.Unix(1700000005, 0)))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
