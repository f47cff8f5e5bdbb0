// Package app wires the Dalkak admin server runtime: config, logging, the
// guard stack (rate limiter, circuit breaker, cache advisor), auth, orders,
// and the realtime notification gateway.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dalkak/cmd/internal/assist"
	authapi "dalkak/cmd/internal/auth/api"
	"dalkak/cmd/internal/auth/session"
	"dalkak/cmd/internal/guard"
	"dalkak/cmd/internal/notify"
	"dalkak/cmd/internal/orders"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// countingNotifier counts accepted lifecycle events; delivery itself is the
// hub's job.
type countingNotifier struct {
	c prometheus.Counter
}

func (n countingNotifier) Notify(context.Context, notify.Event) error {
	n.c.Inc()
	return nil
}

// App is the Dalkak server runtime. It owns the HTTP wiring and the lifecycle
// of the store behind it.
type App struct {
	cfg Config
	log Logger

	store orders.Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *Metrics
	limiter *guard.RateLimiter

	auth     *authapi.Handler
	orderAPI *orders.Handler
	events   *notify.Gateway
	hub      *notify.Hub
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	// The session secret is required: there is no insecure fallback, a
	// misconfigured deployment refuses to start.
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tokens, err := session.NewManager(sessCfg)
	if err != nil {
		return nil, err
	}

	authHandler, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), tokens)
	if err != nil {
		return nil, err
	}

	store, dbPool, dbEnabled, err := newOrderStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics()

	breaker := guard.NewBreaker(guard.BreakerOptions{
		FailureThreshold: cfg.BreakerFailures,
		HalfOpenAfter:    cfg.BreakerHalfOpenAfter,
		Cooldown:         cfg.BreakerCooldown,
		OnStateChange:    metrics.ObserveCircuit,
	})

	assistClient := assist.NewClient(assist.LoadClientConfigFromEnv())
	if assistClient == nil {
		log.Info("assist.disabled.deterministic_only")
	}
	resolver := assist.NewResolver(assist.ResolverOptions{
		Log:       log,
		Client:    assistClient,
		Breaker:   breaker,
		Attempts:  cfg.RetryAttempts,
		RetryBase: cfg.RetryBase,
		RetryMax:  cfg.RetryMax,
	})

	hub := notify.NewHub(log)
	metrics.RegisterNotifyDropped(func() float64 { return float64(hub.Dropped()) })
	notifier := notify.Multi{notify.LogNotifier{Log: log}, hub, countingNotifier{metrics.NotifyDelivered}}

	orderAPI, err := orders.NewHandler(log, store, authHandler,
		orders.WithAdvisor(guard.NewAdvisor(nil)),
		orders.WithNotifier(notifier),
		orders.WithResolver(resolver),
	)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     store,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		metrics:   metrics,
		limiter:   guard.NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		auth:      authHandler,
		orderAPI:  orderAPI,
		events:    notify.NewGateway(log, hub, authHandler.RequireAdmin),
		hub:       hub,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.auth, a.orderAPI, a.events)

	var handler http.Handler = mux
	handler = WithRateLimit(handler, a.limiter, a.cfg, a.log, a.metrics)
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithSecurityHeaders(handler)
	handler = WithRequestMetrics(handler, a.metrics)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newOrderStore decides between Postgres-backed persistence and the in-memory
// dev store.
//
// Ownership model:
// - app owns the pool lifecycle
// - PostgresStore.Close() is a no-op
func newOrderStore(ctx context.Context, cfg Config, log Logger) (orders.Store, *pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return orders.NewMemoryStore(), nil, false, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, err
	}

	store, err := orders.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, err
	}

	log.Info("db.enabled.postgres_store")
	return store, pool, true, nil
}
