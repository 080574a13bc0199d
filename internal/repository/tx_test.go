package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmehdipour/agenthub/internal/repository"
	"github.com/jmehdipour/agenthub/internal/testutil"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockErr() error {
	return &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded; try restarting transaction"}
}

func TestTxRunnerBacksOffOnPersistentContention(t *testing.T) {
	dbx := testutil.NewSQLite(t)
	const base = 10 * time.Millisecond

	var calls, retries int
	r := repository.NewTxRunner(dbx, 3, base)
	r.OnRetry = func(int, error) { retries++ }

	start := time.Now()
	err := r.Run(context.Background(), func(*sqlx.Tx) error {
		calls++
		return lockErr()
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrRetriesExhausted)
	var me *mysql.MySQLError
	assert.True(t, errors.As(err, &me))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, retries)
	// waits of base*1 + base*2 + base*3
	assert.GreaterOrEqual(t, elapsed, 6*base)
}

func TestTxRunnerRecoversAfterTransientLock(t *testing.T) {
	dbx := testutil.NewSQLite(t)
	r := repository.NewTxRunner(dbx, 3, time.Millisecond)

	calls := 0
	err := r.Run(context.Background(), func(tx *sqlx.Tx) error {
		calls++
		if calls == 1 {
			return lockErr()
		}
		_, err := tx.Exec(`INSERT INTO library_item (title) VALUES ('Objection handling')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	var n int
	require.NoError(t, dbx.Get(&n, `SELECT COUNT(*) FROM library_item`))
	assert.Equal(t, 1, n)
}

func TestTxRunnerDoesNotRetryOtherErrors(t *testing.T) {
	dbx := testutil.NewSQLite(t)
	r := repository.NewTxRunner(dbx, 3, time.Second)

	boom := errors.New("boom")
	calls := 0
	start := time.Now()
	err := r.Run(context.Background(), func(*sqlx.Tx) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, repository.ErrRetriesExhausted)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTxRunnerRollsBackFailedAttempt(t *testing.T) {
	dbx := testutil.NewSQLite(t)
	r := repository.NewTxRunner(dbx, 2, time.Millisecond)

	err := r.Run(context.Background(), func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`INSERT INTO library_item (title) VALUES ('half written')`); err != nil {
			return err
		}
		return lockErr()
	})
	require.ErrorIs(t, err, repository.ErrRetriesExhausted)

	var n int
	require.NoError(t, dbx.Get(&n, `SELECT COUNT(*) FROM library_item`))
	assert.Zero(t, n)
}

func TestTxRunnerStopsOnContextCancel(t *testing.T) {
	dbx := testutil.NewSQLite(t)
	r := repository.NewTxRunner(dbx, 5, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Run(ctx, func(*sqlx.Tx) error { return lockErr() })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
