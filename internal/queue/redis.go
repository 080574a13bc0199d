package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps each queue in a list: RPUSH to the tail, BLPOP from the head.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

var _ Queue = (*Redis)(nil)

func (q *Redis) Push(ctx context.Context, name string, payload []byte) error {
	if err := q.rdb.RPush(ctx, name, payload).Err(); err != nil {
		return unavailable("rpush", err)
	}
	return nil
}

func (q *Redis) Pop(ctx context.Context, name string, timeout time.Duration) ([]byte, error) {
	res, err := q.rdb.BLPop(ctx, timeout, name).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrEmpty
	case err != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, unavailable("blpop", err)
	}
	// [key, value]
	if len(res) != 2 {
		return nil, ErrEmpty
	}
	return []byte(res[1]), nil
}

func (q *Redis) Len(ctx context.Context, name string) (int64, error) {
	n, err := q.rdb.LLen(ctx, name).Result()
	if err != nil {
		return 0, unavailable("llen", err)
	}
	return n, nil
}

// Close is a no-op; the client is owned by the caller.
func (q *Redis) Close() error { return nil }
