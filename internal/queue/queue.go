// Package queue is the client side of the durable at-least-once FIFO the
// producers push events to and the drain workers pop from.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/agenthub/internal/config"
	"github.com/jmehdipour/agenthub/internal/kafka"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrEmpty is returned by Pop when nothing arrived within the timeout.
	ErrEmpty = errors.New("queue empty")
	// ErrUnavailable wraps failures to reach the queue backend.
	ErrUnavailable = errors.New("queue unavailable")
)

// Queue is a set of named FIFOs. Payload bytes are stored and returned
// untouched.
type Queue interface {
	// Push appends payload to the tail of the named queue.
	Push(ctx context.Context, name string, payload []byte) error
	// Pop removes and returns the head of the named queue, blocking up to
	// timeout. It returns ErrEmpty when the timeout elapses first.
	Pop(ctx context.Context, name string, timeout time.Duration) ([]byte, error)
	// Len reports the backlog, or -1 when the backend cannot tell.
	Len(ctx context.Context, name string) (int64, error)
	Close() error
}

// New builds the backend selected by cfg.Queue.Backend. The redis client is
// only used by the redis backend.
func New(cfg config.Config, rdb *redis.Client) (Queue, error) {
	switch cfg.Queue.Backend {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("queue: redis backend needs a redis client")
		}
		return NewRedis(rdb), nil
	case "kafka":
		return NewKafka(kafka.Config{
			Brokers:        cfg.Kafka.Brokers,
			GroupID:        cfg.Kafka.GroupID,
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
		}), nil
	default:
		return nil, fmt.Errorf("queue: unsupported backend %q", cfg.Queue.Backend)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
