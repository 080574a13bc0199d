// Package worker holds the background loops that move tracked events from
// the queue and the fast store into the relational store.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jmehdipour/agenthub/internal/metrics"
	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmehdipour/agenthub/internal/queue"
	"go.uber.org/zap"
)

// Outcome is what one drain cycle did with the head of the queue.
type Outcome string

const (
	OutcomeEmpty    Outcome = "empty"               // pop timed out
	OutcomeWritten  Outcome = metrics.StageWritten  // committed
	OutcomeDropped  Outcome = metrics.StageDropped  // malformed, discarded
	OutcomeRequeued Outcome = metrics.StageRequeued // commit failed, pushed back to the tail
	OutcomeLost     Outcome = metrics.StageLost     // commit failed and the push back failed too
	OutcomePopError Outcome = "pop_error"
)

// Handler writes the effect of one payload. Returning an error wrapping
// model.ErrMalformed drops the payload; any other error re-queues it.
type Handler interface {
	Handle(ctx context.Context, payload []byte) error
}

type HandlerFunc func(ctx context.Context, payload []byte) error

func (f HandlerFunc) Handle(ctx context.Context, payload []byte) error { return f(ctx, payload) }

// Drainer pops one event at a time from a named queue and hands it to a
// Handler. Failed events go back to the tail of the same queue unchanged.
type Drainer struct {
	Queue          queue.Queue
	Name           string
	Handler        Handler
	PopTimeout     time.Duration // default 5s
	RequeueBackoff time.Duration // default 500ms
	Log            *zap.Logger
}

func NewDrainer(q queue.Queue, name string, h Handler, popTimeout, requeueBackoff time.Duration, log *zap.Logger) *Drainer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Drainer{
		Queue:          q,
		Name:           name,
		Handler:        h,
		PopTimeout:     popTimeout,
		RequeueBackoff: requeueBackoff,
		Log:            log,
	}
}

func (d *Drainer) String() string { return "drain:" + d.Name }

func (d *Drainer) popTimeout() time.Duration {
	if d.PopTimeout <= 0 {
		return 5 * time.Second
	}
	return d.PopTimeout
}

func (d *Drainer) requeueBackoff() time.Duration {
	if d.RequeueBackoff <= 0 {
		return 500 * time.Millisecond
	}
	return d.RequeueBackoff
}

// ProcessOnce waits for one event and writes it. The returned error is only
// non-nil for pop failures and context cancellation while waiting; handling
// failures are reported through the outcome.
func (d *Drainer) ProcessOnce(ctx context.Context) (Outcome, error) {
	payload, err := d.Queue.Pop(ctx, d.Name, d.popTimeout())
	switch {
	case errors.Is(err, queue.ErrEmpty):
		return OutcomeEmpty, nil
	case ctx.Err() != nil:
		return OutcomeEmpty, ctx.Err()
	case err != nil:
		metrics.QueuePopErrorsTotal.WithLabelValues(d.Name).Inc()
		return OutcomePopError, err
	}

	err = d.Handler.Handle(ctx, payload)
	if err == nil {
		metrics.EventsTotal.WithLabelValues(d.Name, string(OutcomeWritten)).Inc()
		return OutcomeWritten, nil
	}

	if errors.Is(err, model.ErrMalformed) {
		metrics.EventsTotal.WithLabelValues(d.Name, string(OutcomeDropped)).Inc()
		d.Log.Warn("event_dropped",
			zap.String("queue", d.Name),
			zap.ByteString("payload", payload),
			zap.Error(err),
		)
		return OutcomeDropped, nil
	}

	// the event must survive shutdown, so the push back ignores cancellation
	outcome := OutcomeRequeued
	if perr := d.Queue.Push(context.WithoutCancel(ctx), d.Name, payload); perr != nil {
		outcome = OutcomeLost
		d.Log.Error("event_lost",
			zap.String("queue", d.Name),
			zap.ByteString("payload", payload),
			zap.NamedError("commit_error", err),
			zap.Error(perr),
		)
	} else {
		d.Log.Warn("event_requeued",
			zap.String("queue", d.Name),
			zap.Duration("backoff", d.requeueBackoff()),
			zap.Error(err),
		)
	}
	metrics.EventsTotal.WithLabelValues(d.Name, string(outcome)).Inc()

	_ = sleepCtx(ctx, d.requeueBackoff())
	return outcome, nil
}

// Run drains until ctx is cancelled. It only returns ctx.Err().
func (d *Drainer) Run(ctx context.Context) error {
	d.Log.Info("drain_started",
		zap.String("queue", d.Name),
		zap.Duration("pop_timeout", d.popTimeout()),
		zap.Duration("requeue_backoff", d.requeueBackoff()),
	)
	defer d.Log.Info("drain_stopped", zap.String("queue", d.Name))

	for ctx.Err() == nil {
		outcome, err := d.ProcessOnce(ctx)
		if outcome == OutcomePopError {
			d.Log.Warn("queue_pop_failed", zap.String("queue", d.Name), zap.Error(err))
			_ = sleepCtx(ctx, d.requeueBackoff())
		}
	}
	return ctx.Err()
}

// Serve lets a supervisor run the drainer.
func (d *Drainer) Serve(ctx context.Context) error { return d.Run(ctx) }

func sleepCtx(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
