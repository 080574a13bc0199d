package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmehdipour/agenthub/internal/breaker"
	"github.com/jmehdipour/agenthub/internal/config"
	"github.com/jmehdipour/agenthub/internal/http/middleware"
	"github.com/jmehdipour/agenthub/internal/metrics"
	"github.com/jmehdipour/agenthub/internal/presence"
	"github.com/jmehdipour/agenthub/internal/presentation"
	"github.com/jmehdipour/agenthub/internal/queue"
	"github.com/jmehdipour/agenthub/internal/rbac"
	"github.com/jmehdipour/agenthub/internal/recommend"
	"github.com/jmehdipour/agenthub/internal/repository"
	"github.com/jmehdipour/agenthub/internal/service/tracking"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the collaborators the routes need. Reports may be nil when
// ClickHouse is not configured.
type Deps struct {
	Users        repository.UsersRepository
	Progress     repository.ProgressRepository
	Tracking     *tracking.Service
	Presence     *presence.Tracker
	Presentation *presentation.Manager
	Policy       *rbac.Policy
	Recommend    *recommend.Service
	Reports      repository.CHViewsRepository
	Redis        *redis.Client
	Log          *zap.Logger
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

// NewServer wires repositories and services from the open connections.
// chDB may be nil.
func NewServer(cfg config.Config, sqlDB, chDB *sqlx.DB, rds *redis.Client, q queue.Queue, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialect, err := repository.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	policy, err := rbac.NewPolicy()
	if err != nil {
		return nil, err
	}

	// repos (SQL)
	usersRepo := repository.NewUsersRepository(sqlDB, dialect)
	recRepo := repository.NewRecommendationsRepository(sqlDB)

	// repos (ClickHouse)
	var reports repository.CHViewsRepository
	if chDB != nil {
		reports = repository.NewCHViewsRepository(chDB)
	}

	// services
	br := breaker.New(breaker.Config{
		Name:          cfg.Queue.ViewQueue,
		FailThreshold: uint32(max(cfg.Queue.Breaker.FailThreshold, 0)),
		OpenFor:       time.Duration(cfg.Queue.Breaker.OpenForMs) * time.Millisecond,
	}, logger.Named("breaker"))
	trackingSvc := tracking.New(q, rds, br, tracking.Options{
		ViewQueue:      cfg.Queue.ViewQueue,
		ProgressPrefix: cfg.Progress.KeyPrefix,
		ProgressTTL:    cfg.Progress.KeyTTL,
		ViewDebounce:   cfg.Tracking.ViewDebounce,
	}, logger.Named("tracking"))

	return newServer(cfg, Deps{
		Users:        usersRepo,
		Progress:     repository.NewProgressRepository(sqlDB, dialect),
		Tracking:     trackingSvc,
		Presence:     presence.New(rds, cfg.Presence.OnlineTTL),
		Presentation: presentation.NewManager(rds, cfg.Presentation.StateTTL, logger.Named("presentation")),
		Policy:       policy,
		Recommend:    recommend.NewService(recRepo, recommend.WeightsFrom(cfg.Recommend)),
		Reports:      reports,
		Redis:        rds,
		Log:          logger,
	}), nil
}

func newServer(cfg config.Config, d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	// echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if cfg.Log.Level == "debug" {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.WARN)
	}
	e.Use(
		echoMid.Recover(),
		echoMid.RequestIDWithConfig(echoMid.RequestIDConfig{Generator: uuid.NewString}),
		requestLogger(d.Log),
	)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(d.Users)
	presenceMW := middleware.PresenceMiddleware(d.Presence)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:user:",
		Window:         time.Second,
		RetryAfterHint: true,
	})
	can := d.Policy.Require

	// routes
	v1 := e.Group("/v1", authMW, presenceMW)

	lib := v1.Group("/library")
	lib.POST("/items/:id/view", viewHandler(d.Tracking), rlMW, can(rbac.LibraryTrack))
	lib.POST("/items/:id/progress", progressHandler(d.Tracking), rlMW, can(rbac.LibraryTrack))
	lib.GET("/items/:id/progress", getProgressHandler(d.Progress), can(rbac.LibraryView))
	lib.GET("/recommendations", recommendationsHandler(d.Recommend), can(rbac.LibraryRecommend))

	v1.GET("/users/:id/presence", userPresenceHandler(d.Presence), can(rbac.PresenceRead))
	v1.GET("/team/presence", teamPresenceHandler(d.Users, d.Presence), can(rbac.PresenceRead))

	pres := v1.Group("/presentations")
	pres.POST("/:id/goto/:slide", gotoSlideHandler(d.Presentation), can(rbac.PresentationPresent))
	pres.GET("/:id/current", currentSlideHandler(d.Presentation), can(rbac.PresentationWatch))
	pres.GET("/:id/stream", slideStreamHandler(d.Presentation), can(rbac.PresentationWatch))

	v1.GET("/reports/views", listDailyViewsHandler(d.Reports), can(rbac.ReportsRead))

	return &Server{e: e, log: d.Log}
}

func requestLogger(l *zap.Logger) echo.MiddlewareFunc {
	return echoMid.RequestLoggerWithConfig(echoMid.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echoMid.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				l.Warn("http_request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			l.Info("http_request", fields...)
			return nil
		},
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.log.Info("http_listening", zap.String("addr", addr))
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
