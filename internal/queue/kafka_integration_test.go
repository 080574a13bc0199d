//go:build integration

package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmehdipour/agenthub/internal/kafka"
	"github.com/jmehdipour/agenthub/internal/queue"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const viewQueue = "queue:library_views"

func TestKafkaQueueIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	brokers := startKafkaContainer(t, ctx)
	createTopic(t, brokers[0], queue.TopicFor(viewQueue))

	cfg := kafka.Config{Brokers: brokers, GroupID: "agenthub-drain-it"}

	// produced before the group exists: a new group starts at the oldest offset
	first := queue.NewKafka(cfg)
	require.NoError(t, first.Push(ctx, viewQueue, []byte(`{"actor_id":7,"subject_id":42,"ts":1}`)))

	got, err := first.Pop(ctx, viewQueue, 30*time.Second)
	require.NoError(t, err)
	require.Equal(t, `{"actor_id":7,"subject_id":42,"ts":1}`, string(got))

	_, err = first.Pop(ctx, viewQueue, 2*time.Second)
	require.ErrorIs(t, err, queue.ErrEmpty)

	n, err := first.Len(ctx, viewQueue)
	require.NoError(t, err)
	require.Equal(t, int64(-1), n)
	require.NoError(t, first.Close())

	// the offset was committed on Pop: a fresh member of the group only sees
	// what came after it
	second := queue.NewKafka(cfg)
	t.Cleanup(func() { _ = second.Close() })
	require.NoError(t, second.Push(ctx, viewQueue, []byte(`{"actor_id":7,"subject_id":43,"ts":2}`)))

	got, err = second.Pop(ctx, viewQueue, 30*time.Second)
	require.NoError(t, err)
	require.Equal(t, `{"actor_id":7,"subject_id":43,"ts":2}`, string(got))

	_, err = second.Pop(ctx, viewQueue, 2*time.Second)
	require.ErrorIs(t, err, queue.ErrEmpty)
}

func TestKafkaQueuePopHonoursCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	brokers := startKafkaContainer(t, ctx)
	createTopic(t, brokers[0], queue.TopicFor(viewQueue))

	q := queue.NewKafka(kafka.Config{Brokers: brokers, GroupID: "agenthub-cancel-it"})
	t.Cleanup(func() { _ = q.Close() })

	cctx, cancel := context.WithCancel(ctx)
	time.AfterFunc(500*time.Millisecond, cancel)
	_, err := q.Pop(cctx, viewQueue, 30*time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func startKafkaContainer(t *testing.T, ctx context.Context) []string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("agenthub-it"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}
