// Package presentation keeps the live "current slide" of each presentation in
// Redis so every API process sees the same state and can push changes to
// watchers.
package presentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Manager struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewManager(rdb *redis.Client, stateTTL time.Duration, log *zap.Logger) *Manager {
	if stateTTL <= 0 {
		stateTTL = 12 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{rdb: rdb, ttl: stateTTL, log: log}
}

func currentKey(presID int64) string { return "pres:" + strconv.FormatInt(presID, 10) + ":current" }
func eventsChan(presID int64) string { return "pres:" + strconv.FormatInt(presID, 10) + ":events" }

// Goto moves presentation presID to slideID and notifies subscribers.
func (m *Manager) Goto(ctx context.Context, presID, slideID int64) error {
	if presID <= 0 || slideID <= 0 {
		return fmt.Errorf("invalid presentation %d / slide %d", presID, slideID)
	}
	_, err := m.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, currentKey(presID), slideID, m.ttl)
		p.Publish(ctx, eventsChan(presID), slideID)
		return nil
	})
	return err
}

// Current returns the slide presID is on; ok is false when nobody moved it
// yet or the state expired.
func (m *Manager) Current(ctx context.Context, presID int64) (slideID int64, ok bool, err error) {
	slideID, err = m.rdb.Get(ctx, currentKey(presID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return slideID, true, nil
}

// Subscribe streams slide changes of presID until ctx ends; the channel is
// closed then. The subscription is active when Subscribe returns.
func (m *Manager) Subscribe(ctx context.Context, presID int64) (<-chan int64, error) {
	ps := m.rdb.Subscribe(ctx, eventsChan(presID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan int64, 8)
	go func() {
		defer close(out)
		defer func() { _ = ps.Close() }()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				id, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					m.log.Warn("presentation_event_malformed", zap.String("channel", msg.Channel), zap.String("payload", msg.Payload))
					continue
				}
				select {
				case out <- id:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
