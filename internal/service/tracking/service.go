// Package tracking turns user actions into queued events. Handlers call it
// instead of writing to the relational store.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmehdipour/agenthub/internal/breaker"
	"github.com/jmehdipour/agenthub/internal/metrics"
	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmehdipour/agenthub/internal/queue"
	"github.com/jmehdipour/agenthub/internal/util"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrQueueUnavailable is returned when a durable event could not be enqueued.
var ErrQueueUnavailable = errors.New("event queue unavailable")

const progressQueueLabel = "progress"

type Options struct {
	ViewQueue      string
	ProgressPrefix string
	ProgressTTL    time.Duration // 0 keeps snapshots forever
	ViewDebounce   time.Duration // 0 disables debounce
}

// Service is the event producer. View events are durable: a failed push is
// reported to the caller. Progress snapshots are telemetry: a failed write is
// logged and dropped.
type Service struct {
	q       queue.Queue
	rdb     *redis.Client
	breaker *breaker.Breaker
	opts    Options
	log     *zap.Logger

	now   func() time.Time
	newID func() string
}

// New constructs the tracking service.
func New(q queue.Queue, rdb *redis.Client, br *breaker.Breaker, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if br == nil {
		br = breaker.New(breaker.Config{Name: opts.ViewQueue}, log)
	}
	return &Service{
		q:       q,
		rdb:     rdb,
		breaker: br,
		opts:    opts,
		log:     log,
		now:     time.Now,
		newID:   util.New,
	}
}

func debounceKey(actorID, itemID int64) string {
	return "libview:debounce:" + strconv.FormatInt(actorID, 10) + ":" + strconv.FormatInt(itemID, 10)
}

// RecordView enqueues a view of itemID by actorID. Repeated views of the same
// item inside the debounce window are accepted but not enqueued
// (recorded=false).
func (s *Service) RecordView(ctx context.Context, actorID, itemID int64) (eventID string, recorded bool, err error) {
	ev := model.ViewEvent{ActorID: actorID, SubjectID: itemID, TS: s.now().Unix()}
	if err := ev.Validate(); err != nil {
		return "", false, err
	}

	var dkey string
	if s.opts.ViewDebounce > 0 {
		dkey = debounceKey(actorID, itemID)
		fresh, err := s.rdb.SetNX(ctx, dkey, 1, s.opts.ViewDebounce).Result()
		switch {
		case err != nil:
			s.log.Warn("view_debounce_failed", zap.String("key", dkey), zap.Error(err))
			dkey = ""
		case !fresh:
			metrics.EventsTotal.WithLabelValues(s.opts.ViewQueue, metrics.StageDebounced).Inc()
			return "", false, nil
		}
	}

	ev.EventID = s.newID()
	payload, err := model.EncodeView(ev)
	if err != nil {
		return "", false, fmt.Errorf("encode view: %w", err)
	}

	err = breaker.Do(s.breaker, func() error {
		return s.q.Push(ctx, s.opts.ViewQueue, payload)
	})
	if err != nil {
		metrics.EventsTotal.WithLabelValues(s.opts.ViewQueue, metrics.StageRejected).Inc()
		s.log.Error("view_enqueue_failed",
			zap.String("queue", s.opts.ViewQueue),
			zap.Int64("actor_id", actorID),
			zap.Int64("subject_id", itemID),
			zap.String("breaker", s.breaker.State().String()),
			zap.Bool("fail_fast", breaker.Rejected(err)),
			zap.Error(err),
		)
		// let the client retry without waiting out the window
		if dkey != "" {
			_ = s.rdb.Del(context.WithoutCancel(ctx), dkey).Err()
		}
		return "", false, fmt.Errorf("%w: %w", ErrQueueUnavailable, err)
	}

	metrics.EventsTotal.WithLabelValues(s.opts.ViewQueue, metrics.StageEnqueued).Inc()
	return ev.EventID, true, nil
}

// RecordProgress stores the latest playback position of actorID on itemID as
// a hash the snapshot scanner picks up. Only validation errors are returned.
func (s *Service) RecordProgress(ctx context.Context, actorID, itemID, position, duration int64) error {
	ev := model.ProgressEvent{
		ActorID:   actorID,
		SubjectID: itemID,
		TS:        s.now().Unix(),
		Position:  position,
		Duration:  duration,
	}
	if err := ev.Validate(); err != nil {
		return err
	}

	key := model.ProgressKey(s.opts.ProgressPrefix, actorID, itemID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"position", ev.Position,
			"duration", ev.Duration,
			"ts", ev.TS,
		)
		if s.opts.ProgressTTL > 0 {
			p.Expire(ctx, key, s.opts.ProgressTTL)
		}
		return nil
	})
	if err != nil {
		metrics.EventsTotal.WithLabelValues(progressQueueLabel, metrics.StageLost).Inc()
		s.log.Warn("progress_write_failed", zap.String("key", key), zap.Error(err))
		return nil
	}

	metrics.EventsTotal.WithLabelValues(progressQueueLabel, metrics.StageEnqueued).Inc()
	return nil
}
