package worker

import (
	"context"
	"time"

	"github.com/jmehdipour/agenthub/internal/metrics"
	"github.com/jmehdipour/agenthub/internal/model"
	"github.com/jmehdipour/agenthub/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProgressScanner periodically copies the progress hashes written by the
// producer into library_progress. Keys are left in place; the producer's TTL
// expires them.
type ProgressScanner struct {
	Redis    *redis.Client
	Prefix   string
	Interval time.Duration // default 5s
	Count    int64         // SCAN batch hint, default 200
	Progress repository.ProgressRepository
	Tx       *repository.TxRunner
	Log      *zap.Logger

	now func() time.Time
}

type ScanResult struct {
	Keys      int // keys matched
	Upserted  int
	Unchanged int // no ts and the stored row already matches
	Skipped   int // malformed keys or hashes
	Failed    int // store writes that gave up; retried next cycle
}

func NewProgressScanner(rdb *redis.Client, prefix string, interval time.Duration, count int64,
	progress repository.ProgressRepository, tx *repository.TxRunner, log *zap.Logger) *ProgressScanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProgressScanner{
		Redis:    rdb,
		Prefix:   prefix,
		Interval: interval,
		Count:    count,
		Progress: progress,
		Tx:       tx,
		Log:      log,
		now:      time.Now,
	}
}

func (s *ProgressScanner) String() string { return "progress-scanner" }

func (s *ProgressScanner) interval() time.Duration {
	if s.Interval <= 0 {
		return 5 * time.Second
	}
	return s.Interval
}

// ScanOnce walks every key under Prefix and upserts its snapshot. A failed
// write skips the key for this cycle; only fast-store errors abort the cycle.
func (s *ProgressScanner) ScanOnce(ctx context.Context) (ScanResult, error) {
	var res ScanResult

	count := s.Count
	if count <= 0 {
		count = 200
	}

	iter := s.Redis.Scan(ctx, 0, s.Prefix+"*", count).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		res.Keys++

		actorID, itemID, err := model.ParseProgressKey(s.Prefix, key)
		if err != nil {
			res.Skipped++
			metrics.ProgressUpsertsTotal.WithLabelValues("skipped").Inc()
			s.Log.Debug("progress_key_skipped", zap.String("key", key), zap.Error(err))
			continue
		}

		fields, err := s.Redis.HGetAll(ctx, key).Result()
		if err != nil {
			return res, err
		}
		if len(fields) == 0 {
			// expired between SCAN and HGETALL
			continue
		}

		ev, err := model.ProgressFromHash(actorID, itemID, fields)
		if err != nil {
			res.Skipped++
			metrics.ProgressUpsertsTotal.WithLabelValues("skipped").Inc()
			s.Log.Warn("progress_snapshot_malformed", zap.String("key", key), zap.Error(err))
			continue
		}

		row := model.LibraryProgress{
			UserID:    ev.ActorID,
			ItemID:    ev.SubjectID,
			Position:  ev.Position,
			Duration:  ev.Duration,
			Percent:   model.Percent(ev.Position, ev.Duration),
			UpdatedAt: s.now().UTC(),
		}
		if ev.TS > 0 {
			row.UpdatedAt = time.Unix(ev.TS, 0).UTC()
		} else {
			// without ts the scan time would move updated_at on every cycle
			cur, err := s.Progress.Get(ctx, ev.ActorID, ev.SubjectID)
			if err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				res.Failed++
				metrics.ProgressUpsertsTotal.WithLabelValues("failed").Inc()
				s.Log.Warn("progress_read_failed", zap.String("key", key), zap.Error(err))
				continue
			}
			if cur != nil && cur.Position == row.Position && cur.Duration == row.Duration {
				res.Unchanged++
				metrics.ProgressUpsertsTotal.WithLabelValues("unchanged").Inc()
				continue
			}
		}

		err = s.Tx.Run(ctx, func(tx *sqlx.Tx) error {
			return s.Progress.Upsert(ctx, tx, row)
		})
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed++
			metrics.ProgressUpsertsTotal.WithLabelValues("failed").Inc()
			s.Log.Warn("progress_upsert_failed", zap.String("key", key), zap.Error(err))
			continue
		}
		res.Upserted++
		metrics.ProgressUpsertsTotal.WithLabelValues("ok").Inc()
	}
	return res, iter.Err()
}

// Run scans immediately and then once per Interval until ctx is cancelled.
func (s *ProgressScanner) Run(ctx context.Context) error {
	s.Log.Info("progress_scanner_started", zap.String("prefix", s.Prefix), zap.Duration("interval", s.interval()))
	defer s.Log.Info("progress_scanner_stopped")

	for {
		start := time.Now()
		res, err := s.ScanOnce(ctx)
		if err != nil && ctx.Err() == nil {
			s.Log.Warn("progress_scan_failed", zap.Error(err))
		} else if res.Keys > 0 {
			s.Log.Debug("progress_scan_done",
				zap.Int("keys", res.Keys),
				zap.Int("upserted", res.Upserted),
				zap.Int("unchanged", res.Unchanged),
				zap.Int("skipped", res.Skipped),
				zap.Int("failed", res.Failed),
				zap.Duration("took", time.Since(start)),
			)
		}

		if err := sleepCtx(ctx, s.interval()); err != nil {
			return err
		}
	}
}

// Serve lets a supervisor run the scanner.
func (s *ProgressScanner) Serve(ctx context.Context) error { return s.Run(ctx) }
