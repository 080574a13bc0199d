package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/agenthub/internal/config"
	"github.com/jmehdipour/agenthub/internal/db"
	"github.com/jmehdipour/agenthub/internal/logger"
	"github.com/jmehdipour/agenthub/internal/metrics"
	"github.com/jmehdipour/agenthub/internal/queue"
	"github.com/jmehdipour/agenthub/internal/repository"
	"github.com/jmehdipour/agenthub/internal/supervisor"
	"github.com/jmehdipour/agenthub/internal/worker"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var metricsAddr string

// NewWorkerCmd returns the parent "worker" command.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run background workers (views | progress | all)",
	}
	cmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address (disabled when empty)")

	// attach subcommands
	cmd.AddCommand(
		&cobra.Command{
			Use:   "views",
			Short: "Drain the view queue into library_view",
			RunE:  func(cmd *cobra.Command, args []string) error { return run(cmd, true, false) },
		},
		&cobra.Command{
			Use:   "progress",
			Short: "Copy progress snapshots from Redis into library_progress",
			RunE:  func(cmd *cobra.Command, args []string) error { return run(cmd, false, true) },
		},
		&cobra.Command{
			Use:   "all",
			Short: "Run the view drainer and the progress scanner together",
			RunE:  func(cmd *cobra.Command, args []string) error { return run(cmd, true, true) },
		},
	)
	return cmd
}

type deps struct {
	cfg     config.Config
	log     *zap.Logger
	dbx     *sqlx.DB
	dialect repository.Dialect
	rdb     *redis.Client
	q       queue.Queue
}

func run(cmd *cobra.Command, views, progress bool) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Encoding)
	defer func() { _ = log.Sync() }()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) connections
	d := deps{cfg: cfg, log: log}
	if d.dialect, err = repository.ParseDialect(cfg.Database.Driver); err != nil {
		return err
	}
	if d.dbx, err = db.Open(cfg.Database); err != nil {
		return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	defer d.dbx.Close()

	if d.rdb, err = db.NewRedisClient(db.RedisOptsFrom(cfg.Redis)); err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer func() { _ = d.rdb.Close() }()

	if views {
		if d.q, err = queue.New(cfg, d.rdb); err != nil {
			return err
		}
		defer func() { _ = d.q.Close() }()
	}

	// 3) workers under one supervisor
	sup := supervisor.New("agenthub-worker", log, supervisor.ConfigFrom(cfg.Supervisor))
	if views {
		sup.Add(newViewDrainer(d))
	}
	if progress {
		sup.Add(newProgressScanner(d))
	}

	// 4) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		go serveMetrics(ctx, metricsAddr, log)
	}

	log.Info("worker_started",
		zap.Bool("views", views),
		zap.Bool("progress", progress),
		zap.String("queue_backend", cfg.Queue.Backend),
		zap.String("driver", cfg.Database.Driver),
	)
	err = sup.Serve(ctx)
	log.Info("worker_stopped", zap.Error(err))
	return err
}

func newViewDrainer(d deps) *worker.Drainer {
	name := d.cfg.Queue.ViewQueue
	tx := repository.NewTxRunner(d.dbx, d.cfg.Commit.Attempts, d.cfg.Commit.Backoff)
	tx.OnRetry = worker.CountRetries(name, d.log.Named("views"))

	h := worker.NewViewHandler(repository.NewViewsRepository(d.dbx, d.dialect), tx, d.log.Named("views"))
	return worker.NewDrainer(d.q, name, h, d.cfg.Queue.PopTimeout, d.cfg.Queue.RequeueBackoff, d.log.Named("drainer"))
}

func newProgressScanner(d deps) *worker.ProgressScanner {
	tx := repository.NewTxRunner(d.dbx, d.cfg.Commit.Attempts, d.cfg.Commit.Backoff)
	tx.OnRetry = worker.CountRetries("progress", d.log.Named("progress"))

	return worker.NewProgressScanner(
		d.rdb,
		d.cfg.Progress.KeyPrefix,
		d.cfg.Progress.ScanInterval,
		d.cfg.Progress.ScanCount,
		repository.NewProgressRepository(d.dbx, d.dialect),
		tx,
		d.log.Named("progress"),
	)
}

func serveMetrics(ctx context.Context, addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics_listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics_server_exited", zap.Error(err))
	}
}
