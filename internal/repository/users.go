package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmoiron/sqlx"
)

type UsersRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	UpsertByAPIKey(ctx context.Context, tx *sqlx.Tx, u model.User) error
	// ListTeammates returns the ids of users sharing a team with userID,
	// userID included even when it belongs to no team.
	ListTeammates(ctx context.Context, userID int64) ([]int64, error)
}

type UsersRepositoryImpl struct {
	db      *sqlx.DB
	dialect Dialect
}

func NewUsersRepository(db *sqlx.DB, dialect Dialect) *UsersRepositoryImpl {
	return &UsersRepositoryImpl{db: db, dialect: dialect}
}

var _ UsersRepository = (*UsersRepositoryImpl)(nil)

const selectUser = `
		SELECT id, email, username, name, role, api_key, disabled, created_at, updated_at
		  FROM users
`

func (r *UsersRepositoryImpl) GetByAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	return r.getOne(ctx, selectUser+` WHERE api_key = ? LIMIT 1`, apiKey)
}

func (r *UsersRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = ? LIMIT 1`, id)
}

func (r *UsersRepositoryImpl) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, q, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertByAPIKey inserts a user or refreshes name/role/disabled of the user
// holding the same api_key (idempotent seeding).
func (r *UsersRepositoryImpl) UpsertByAPIKey(ctx context.Context, tx *sqlx.Tx, u model.User) error {
	q := `
		INSERT INTO users
		    (email, username, name, role, api_key, disabled, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (api_key) DO UPDATE SET
		    name       = excluded.name,
		    role       = excluded.role,
		    disabled   = excluded.disabled,
		    updated_at = excluded.updated_at
	`
	if r.dialect == DialectMySQL {
		q = `
		INSERT INTO users
		    (email, username, name, role, api_key, disabled, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    name       = VALUES(name),
		    role       = VALUES(role),
		    disabled   = VALUES(disabled),
		    updated_at = VALUES(updated_at)
	`
	}
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, u.Email, u.Username, u.Name, u.Role.String(), u.APIKey, u.Disabled)
		return err
	})
}

func (r *UsersRepositoryImpl) ListTeammates(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT other.user_id
		  FROM team_member me
		  JOIN team_member other ON other.team_id = me.team_id
		 WHERE me.user_id = ?
		 ORDER BY other.user_id
	`, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		ids = []int64{userID}
	}
	return ids, nil
}
