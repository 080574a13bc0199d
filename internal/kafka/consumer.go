package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config describes one consumer-group reader. Brokers and GroupID are
// shared by every queue; Topic is the queue name.
type Config struct {
	Brokers        []string
	Topic          string
	GroupID        string
	MinBytes       int           // default 1
	MaxBytes       int           // default 10MB
	CommitInterval time.Duration // 0 commits synchronously on every Commit call
	MaxWait        time.Duration // default 250ms
}

func (c Config) withDefaults() Config {
	if c.MinBytes <= 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 << 20
	}
	if c.CommitInterval < 0 {
		c.CommitInterval = 0
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 250 * time.Millisecond
	}
	return c
}

// Consumer reads one topic through a consumer group. A group seen for the
// first time starts at the oldest retained offset so events produced before
// the first worker started are still drained.
type Consumer struct {
	topic string
	r     *kafka.Reader
}

func NewConsumerFromConfig(c Config) *Consumer {
	c = c.withDefaults()
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		MinBytes:       c.MinBytes,
		MaxBytes:       c.MaxBytes,
		CommitInterval: c.CommitInterval,
		MaxWait:        c.MaxWait,
		StartOffset:    kafka.FirstOffset,
	})
	return &Consumer{topic: c.Topic, r: r}
}

type Message = kafka.Message

func (c *Consumer) Topic() string { return c.topic }

// Fetch blocks until a message is available or ctx ends. The offset is not
// committed.
func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	return c.r.FetchMessage(ctx)
}

func (c *Consumer) Commit(ctx context.Context, m Message) error {
	return c.r.CommitMessages(ctx, m)
}

func (c *Consumer) Close() error { return c.r.Close() }
