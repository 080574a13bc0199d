package queue

import (
	"context"
	"testing"
	"time"

	"github.com/jmehdipour/agenthub/internal/config"
	"github.com/jmehdipour/agenthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisQueueIsFIFO(t *testing.T) {
	ctx := context.Background()
	mr, rdb := testutil.NewRedis(t)
	q := NewRedis(rdb)

	require.NoError(t, q.Push(ctx, "queue:library_views", []byte(`{"a":1}`)))
	require.NoError(t, q.Push(ctx, "queue:library_views", []byte(`{"a":2}`)))

	n, err := q.Len(ctx, "queue:library_views")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := mr.List("queue:library_views")
	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`}, list)

	got, err := q.Pop(ctx, "queue:library_views", time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	got, err = q.Pop(ctx, "queue:library_views", time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got))
}

func TestRedisQueuePopTimesOut(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	q := NewRedis(rdb)

	start := time.Now()
	_, err := q.Pop(context.Background(), "queue:empty", time.Second)
	assert.ErrorIs(t, err, ErrEmpty)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestRedisQueuePopHonoursCancel(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	q := NewRedis(rdb)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx, "queue:empty", 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisQueueUnavailable(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)
	q := NewRedis(rdb)
	mr.Close()

	err := q.Push(context.Background(), "queue:library_views", []byte("x"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewSelectsBackend(t *testing.T) {
	_, rdb := testutil.NewRedis(t)

	q, err := New(config.Config{Queue: config.QueueConfig{Backend: "redis"}}, rdb)
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, q)

	q, err = New(config.Config{Queue: config.QueueConfig{Backend: "kafka"}, Kafka: config.KafkaConfig{Brokers: []string{"127.0.0.1:9092"}}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Kafka{}, q)
	require.NoError(t, q.Close())

	_, err = New(config.Config{Queue: config.QueueConfig{Backend: "redis"}}, nil)
	assert.Error(t, err)

	_, err = New(config.Config{Queue: config.QueueConfig{Backend: "sqs"}}, rdb)
	assert.Error(t, err)
}

func TestKafkaTopicFor(t *testing.T) {
	assert.Equal(t, "queue.library_views", TopicFor("queue:library_views"))
	assert.Equal(t, "views-v2.eu_1", TopicFor("views-v2.eu_1"))
	assert.Equal(t, "a.b.c", TopicFor("a b/c"))
}
