// Package supervisor runs long-lived workers under a suture supervisor so a
// panicking or failing worker is restarted with backoff instead of taking the
// process down.
package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/jmehdipour/agenthub/internal/config"
	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"
)

type Config struct {
	FailureThreshold float64       // failures before backing off, default 5
	FailureDecay     float64       // seconds, default 30
	FailureBackoff   time.Duration // default 15s
	ShutdownTimeout  time.Duration // default 10s
}

func ConfigFrom(c config.SupervisorConfig) Config {
	return Config{
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		ShutdownTimeout:  c.ShutdownTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = 30
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = 15 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

type Supervisor struct {
	root *suture.Supervisor
	log  *zap.Logger
}

func New(name string, log *zap.Logger, cfg Config) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	root := suture.New(name, suture.Spec{
		EventHook:        eventHook(log),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})
	return &Supervisor{root: root, log: log}
}

// Add registers a worker. Services added after Serve started are started
// right away.
func (s *Supervisor) Add(svc suture.Service) suture.ServiceToken {
	return s.root.Add(svc)
}

// Serve blocks until ctx is cancelled and every worker has stopped or timed
// out. Cancellation is a clean stop and returns nil.
func (s *Supervisor) Serve(ctx context.Context) error {
	err := s.root.Serve(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if report, rerr := s.root.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, u := range report {
			s.log.Error("worker_not_stopped", zap.String("service", u.Name))
		}
	}
	return err
}

func eventHook(log *zap.Logger) suture.EventHook {
	return func(e suture.Event) {
		fields := make([]zap.Field, 0, 5)
		for k, v := range e.Map() {
			switch k {
			case "supervisor_name", "service_name", "restarting", "error", "panic_msg":
				fields = append(fields, zap.Any(k, v))
			}
		}

		switch e.Type() {
		case suture.EventTypeServicePanic:
			log.Error("worker_panic", fields...)
		case suture.EventTypeServiceTerminate:
			log.Warn("worker_terminated", fields...)
		case suture.EventTypeBackoff:
			log.Warn("supervisor_backoff", fields...)
		case suture.EventTypeResume:
			log.Info("supervisor_resume", fields...)
		case suture.EventTypeStopTimeout:
			log.Error("worker_stop_timeout", fields...)
		default:
			log.Info("supervisor_event", zap.String("event", e.String()))
		}
	}
}
