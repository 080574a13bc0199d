package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmehdipour/agenthub/internal/kafka"
)

// Kafka maps each queue name to a topic (see TopicFor). Pop fetches through the consumer
// group and commits before returning, so a popped message is gone from the
// queue exactly like a BLPOP.
type Kafka struct {
	cfg      kafka.Config
	producer *kafka.Producer

	mu        sync.Mutex
	consumers map[string]*kafka.Consumer
}

func NewKafka(cfg kafka.Config) *Kafka {
	return &Kafka{
		cfg:       cfg,
		producer:  kafka.NewProducer(cfg.Brokers),
		consumers: make(map[string]*kafka.Consumer),
	}
}

var _ Queue = (*Kafka)(nil)

// TopicFor maps a queue name onto the Kafka topic charset: any character
// outside [a-zA-Z0-9._-] becomes '.', so "queue:library_views" is
// "queue.library_views".
func TopicFor(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '.'
	}, name)
}

func (q *Kafka) Push(ctx context.Context, name string, payload []byte) error {
	if err := q.producer.Publish(ctx, TopicFor(name), nil, payload); err != nil {
		return unavailable("produce", err)
	}
	return nil
}

func (q *Kafka) consumer(name string) *kafka.Consumer {
	q.mu.Lock()
	defer q.mu.Unlock()

	c, ok := q.consumers[name]
	if !ok {
		cfg := q.cfg
		cfg.Topic = TopicFor(name)
		c = kafka.NewConsumerFromConfig(cfg)
		q.consumers[name] = c
	}
	return c
}

func (q *Kafka) Pop(ctx context.Context, name string, timeout time.Duration) ([]byte, error) {
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := q.consumer(name)
	m, err := c.Fetch(fctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrEmpty
		}
		return nil, unavailable("fetch", err)
	}
	if err := c.Commit(ctx, m); err != nil {
		return nil, unavailable("commit offset", err)
	}
	return m.Value, nil
}

// Len is not tracked for topics.
func (q *Kafka) Len(context.Context, string) (int64, error) { return -1, nil }

func (q *Kafka) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var errs []error
	for name, c := range q.consumers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer %s: %w", name, err))
		}
		delete(q.consumers, name)
	}
	if err := q.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close producer: %w", err))
	}
	return errors.Join(errs...)
}
