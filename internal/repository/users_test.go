package repository_test

import (
	"context"
	"testing"

	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmehdipour/agenthub/internal/repository"
	"github.com/jmehdipour/agenthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersUpsertAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUsersRepository(testutil.NewSQLite(t), repository.DialectSQLite)

	u := model.User{Email: "ana@example.com", Username: "ana", Name: "Ana", Role: model.RoleAgent, APIKey: "key-ana"}
	require.NoError(t, repo.UpsertByAPIKey(ctx, nil, u))

	u.Role = model.RoleManager
	u.Disabled = true
	require.NoError(t, repo.UpsertByAPIKey(ctx, nil, u))

	got, err := repo.GetByAPIKey(ctx, "key-ana")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.RoleManager, got.Role)
	assert.True(t, got.Disabled)

	byID, err := repo.GetByID(ctx, got.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "ana", byID.Username)

	missing, err := repo.GetByAPIKey(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUsersListTeammates(t *testing.T) {
	ctx := context.Background()
	dbx := testutil.NewSQLite(t)
	repo := repository.NewUsersRepository(dbx, repository.DialectSQLite)

	dbx.MustExec(`INSERT INTO team_member (team_id, user_id) VALUES (1, 7), (1, 8), (2, 7), (2, 9), (3, 10)`)

	ids, err := repo.ListTeammates(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8, 9}, ids)

	// no team: the caller is still listed
	ids, err = repo.ListTeammates(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, []int64{99}, ids)
}
