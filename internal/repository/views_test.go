package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmehdipour/agenthub/internal/repository"
	"github.com/jmehdipour/agenthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewsInsertAppends(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewViewsRepository(testutil.NewSQLite(t), repository.DialectSQLite)

	at := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 2; i++ {
		inserted, err := repo.Insert(ctx, nil, model.LibraryView{UserID: 7, ItemID: 42, ViewedAt: at})
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	n, err := repo.CountByItem(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "views without an event id are append-only")

	rows, err := repo.ListByItem(ctx, 42, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(7), rows[0].UserID)
	assert.True(t, rows[0].ViewedAt.Equal(at))
	assert.False(t, rows[0].EventID.Valid)
}

func TestViewsInsertIgnoresRedeliveredEventID(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewViewsRepository(testutil.NewSQLite(t), repository.DialectSQLite)

	v := model.LibraryView{
		EventID:  sql.NullString{String: "01HF0000000000000000000000", Valid: true},
		UserID:   7,
		ItemID:   42,
		ViewedAt: time.Unix(1700000000, 0),
	}

	inserted, err := repo.Insert(ctx, nil, v)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(ctx, nil, v)
	require.NoError(t, err)
	assert.False(t, inserted)

	n, err := repo.CountByItem(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
