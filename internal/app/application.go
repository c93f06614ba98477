package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/R3E-Network/submission_review/internal/app/system"
	"github.com/R3E-Network/submission_review/internal/config"
	"github.com/R3E-Network/submission_review/internal/database"
	"github.com/R3E-Network/submission_review/internal/events"
	"github.com/R3E-Network/submission_review/internal/httpapi"
	"github.com/R3E-Network/submission_review/internal/httputil"
	"github.com/R3E-Network/submission_review/internal/identity"
	"github.com/R3E-Network/submission_review/internal/logging"
	"github.com/R3E-Network/submission_review/internal/metrics"
	"github.com/R3E-Network/submission_review/internal/middleware"
	"github.com/R3E-Network/submission_review/internal/review"
	"github.com/R3E-Network/submission_review/internal/storage"
	"github.com/R3E-Network/submission_review/internal/storage/memory"
	"github.com/R3E-Network/submission_review/internal/storage/postgres"
	"github.com/R3E-Network/submission_review/internal/videometrics"
)

// Application ties the service together and manages its lifecycle.
type Application struct {
	manager *system.Manager
	log     *logging.Logger
	http    *httpService

	Config   *config.Config
	Store    storage.Store
	Engine   *review.Engine
	Identity *identity.Service
	Metrics  *metrics.Metrics
	Hub      *events.Hub
	Handler  http.Handler
}

// New builds a fully wired application. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Application, error) {
	if log == nil {
		log = logging.New("submission-review", cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{
		manager: system.NewManager(),
		log:     log,
		Config:  cfg,
		Metrics: metrics.New(),
	}

	if cfg.Tracing.Enabled {
		tracer, err := newTracer(ctx, cfg.Tracing)
		if err != nil {
			return nil, fmt.Errorf("configure tracing: %w", err)
		}
		if err := a.manager.Register(tracer); err != nil {
			return nil, err
		}
	}

	store, err := a.buildStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = store

	loc, err := cfg.Stats.Location()
	if err != nil {
		return nil, fmt.Errorf("stats timezone: %w", err)
	}

	a.Identity, err = identity.New(identity.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
	}, store, log)
	if err != nil {
		return nil, fmt.Errorf("configure identity: %w", err)
	}

	a.Hub = events.NewHub(log, cfg.Server.AllowedOrigins)
	publishers := events.Multi{a.Hub}
	if len(cfg.Events.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:      cfg.Events.KafkaBrokers,
			Topic:        cfg.Events.KafkaTopic,
			RequiredAcks: cfg.Events.KafkaRequiredAcks,
			Async:        cfg.Events.KafkaAsync,
		})
		if err != nil {
			return nil, fmt.Errorf("configure kafka: %w", err)
		}
		publishers = append(publishers, kp)
		if err := a.manager.Register(closer{name: "kafka-publisher", close: kp.Close}); err != nil {
			return nil, err
		}
	} else {
		log.Info("no kafka brokers configured; events go to websocket subscribers only")
	}
	if err := a.manager.Register(closer{name: "event-hub", close: a.Hub.Close}); err != nil {
		return nil, err
	}

	a.Engine = review.New(store, log, review.Options{
		Location:  loc,
		Publisher: publishers,
		Recorder:  a.Metrics,
	})

	if err := a.configureVideoMetrics(); err != nil {
		return nil, err
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
		if err := a.manager.Register(&limiterJanitor{rl: limiter, interval: time.Minute}); err != nil {
			return nil, err
		}
	}

	sink, err := httpapi.NewFileAuditSink(cfg.Server.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	var auditSink httpapi.AuditSink
	if sink != nil {
		auditSink = sink
		if err := a.manager.Register(closer{name: "audit-log", close: sink.Close}); err != nil {
			return nil, err
		}
	}

	a.Handler = httpapi.NewRouter(httpapi.Deps{
		Engine:         a.Engine,
		Identity:       a.Identity,
		Accounts:       store,
		Pinger:         store,
		Metrics:        a.Metrics,
		Hub:            a.Hub,
		RateLimiter:    limiter,
		Audit:          httpapi.NewAuditLog(0, auditSink),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Location:       loc,
		Log:            log,
	})

	a.http = &httpService{
		srv: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           a.Handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       90 * time.Second,
		},
		log: log,
	}
	if err := a.manager.Register(a.http); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Application) buildStore(ctx context.Context) (storage.Store, error) {
	cfg := a.Config.Database
	if strings.EqualFold(cfg.Driver, config.DriverMemory) {
		a.log.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil
	}

	gw, err := database.Open(ctx, database.Config{
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, a.log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(gw.DB()); err != nil {
			_ = gw.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.log.Info("database migrations applied")
	}
	if err := a.manager.Register(closer{name: "database", close: gw.Close}); err != nil {
		return nil, err
	}
	return postgres.New(gw), nil
}

func (a *Application) configureVideoMetrics() error {
	cfg := a.Config.VideoMetrics
	if !cfg.Enabled {
		a.log.Info("video metrics refresher disabled")
		return nil
	}

	client := httputil.NewClient(httputil.ClientConfig{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		Token:      cfg.AccessToken,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	})
	var provider videometrics.Provider
	provider, err := videometrics.NewHTTPProvider(client, a.log)
	if err != nil {
		return fmt.Errorf("configure video metrics provider: %w", err)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		provider = videometrics.NewCachedProvider(provider, rdb, cfg.CacheTTL, a.log)
		if err := a.manager.Register(closer{name: "redis", close: rdb.Close}); err != nil {
			return err
		}
	}

	refresher, err := videometrics.NewRefresher(a.Store, a.Store, provider, a.Metrics, videometrics.RefresherConfig{
		Schedule:     cfg.Schedule,
		PageSize:     cfg.PageSize,
		VideoTimeout: cfg.Timeout,
	}, a.log)
	if err != nil {
		return fmt.Errorf("configure video metrics refresher: %w", err)
	}
	return a.manager.Register(refresher)
}

// Start launches every registered service.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop shuts services down in reverse registration order.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Addr is the HTTP listen address, resolved after Start.
func (a *Application) Addr() string {
	return a.http.Addr()
}

// Services lists registered lifecycle components in start order.
func (a *Application) Services() []string {
	return a.manager.Names()
}
