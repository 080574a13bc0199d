// Package breaker builds the circuit breakers that guard queue producers so
// callers fail fast instead of queuing up behind an unreachable backend.
package breaker

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type Breaker = gobreaker.CircuitBreaker[any]

type Config struct {
	Name          string
	FailThreshold uint32        // consecutive failures before opening, default 5
	OpenFor       time.Duration // default 10s
}

// New returns a consecutive-failure breaker. After OpenFor in the open state
// a single trial call decides whether it closes again.
func New(cfg Config, log *zap.Logger) *Breaker {
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker_state_changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Do runs fn through b.
func Do(b *Breaker, fn func() error) error {
	_, err := b.Execute(func() (any, error) { return nil, fn() })
	return err
}

// Rejected reports whether err came from the breaker refusing the call
// rather than from the call itself.
func Rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
