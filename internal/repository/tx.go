package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/agenthub/internal/db"
	"github.com/jmoiron/sqlx"
)

// ErrRetriesExhausted is returned by TxRunner.Run when every attempt hit lock contention.
var ErrRetriesExhausted = errors.New("commit retries exhausted")

// TxRunner runs a unit of work in its own transaction and retries it when the
// store reports lock contention. Attempt n (0-based) that fails on a lock is
// rolled back and followed by a sleep of Backoff*(n+1), so N failed attempts
// cost at least Backoff*(1+2+...+N).
type TxRunner struct {
	DB       *sqlx.DB
	Attempts int           // default 3
	Backoff  time.Duration // default 200ms

	// OnRetry is called after a lock failure, before the backoff sleep.
	OnRetry func(attempt int, err error)
}

func NewTxRunner(dbx *sqlx.DB, attempts int, backoff time.Duration) *TxRunner {
	return &TxRunner{DB: dbx, Attempts: attempts, Backoff: backoff}
}

// Run executes fn until it commits, fails with a non-lock error, the context
// ends, or the attempts run out.
func (r *TxRunner) Run(ctx context.Context, fn func(*sqlx.Tx) error) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		err := r.once(ctx, fn)
		if err == nil {
			return nil
		}
		if !db.IsLockError(err) {
			return err
		}
		last = err
		if r.OnRetry != nil {
			r.OnRetry(attempt, err)
		}
		if err := sleepCtx(ctx, backoff*time.Duration(attempt+1)); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, last)
}

func (r *TxRunner) once(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withTx runs fn in the provided tx, or starts a new transaction when tx is nil.
func withTx(ctx context.Context, dbx *sqlx.DB, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}

	t, err := dbx.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()

	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}
