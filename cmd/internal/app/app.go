// Package app wires the playgate server runtime: config, logging, storage
// backends, HTTP routes, the event feed and the background sweeper.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"playgate/cmd/internal/play/playapi"
	"playgate/cmd/internal/play/protocol"
	"playgate/cmd/internal/play/session"
	"playgate/cmd/internal/realtime"
	"playgate/cmd/security/token"
	"playgate/cmd/security/wallet"
	v1 "playgate/contracts/play/v1"
)

// ServiceName identifies the process in traces and logs.
const ServiceName = "playgate"

// App owns the server's resources and their lifecycle.
type App struct {
	cfg Config
	log *slog.Logger

	store session.Store
	pool  *pgxpool.Pool
	redis *redis.Client

	registry *prometheus.Registry
	metrics  *protocol.Metrics
	svc      *protocol.Service
	hub      *realtime.Hub
	sweeper  *session.Sweeper

	handler http.Handler
}

// New constructs a fully wired App. Backends are connected and their schemas
// ensured before New returns.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		registry: prometheus.NewRegistry(),
	}
	if err := a.wire(ctx); err != nil {
		a.closeBackends()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.cfg
	policy := cfg.Policy()

	if err := a.openStore(ctx, policy); err != nil {
		return err
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := protocol.NewMetrics(a.registry)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	a.metrics = metrics

	entropy, err := token.NewRandGenerator(cfg.EntropyBytes)
	if err != nil {
		return err
	}

	a.hub = realtime.NewHub(a.log)
	a.svc, err = protocol.NewService(a.store, wallet.DefaultRegistry(),
		protocol.WithPolicy(policy),
		protocol.WithEntropy(entropy),
		protocol.WithEventSink(a.hub),
		protocol.WithMetrics(metrics),
		protocol.WithLogger(a.log),
	)
	if err != nil {
		return err
	}

	var handlerOpts []playapi.HandlerOption
	if cfg.Store == StorePostgres && cfg.AuditEnabled {
		auditor, err := playapi.NewPostgresAuditor(a.pool, a.log)
		if err != nil {
			return err
		}
		if err := auditor.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("audit schema: %w", err)
		}
		handlerOpts = append(handlerOpts, playapi.WithAuditor(auditor))
	}

	play, err := playapi.NewHandler(a.log, a.svc, playapi.Config{
		TrustProxy:     cfg.TrustProxy,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, handlerOpts...)
	if err != nil {
		return err
	}

	ws := realtime.NewWSGateway(a.log, a.hub, realtime.GatewayConfig{
		OriginRequired: cfg.WSOriginRequired,
		AllowedOrigins: cfg.WSAllowedOrigins,
		DevInsecure:    cfg.WSDevInsecure,
	})

	a.sweeper, err = session.NewSweeper(a.store, policy, cfg.SweepInterval,
		session.WithSweepLogger(a.log),
		session.WithSweepObserver(metrics.ObserveSwept),
	)
	if err != nil {
		return err
	}

	a.handler = routes{
		log:   a.log,
		store: a.store,
		reg:   a.registry,
		play:  play,
		ws:    ws,
	}.handler()
	return nil
}

// openStore connects the configured backend. The app owns the pool and the
// redis client; the stores only borrow them.
func (a *App) openStore(ctx context.Context, policy session.Policy) error {
	switch a.cfg.Store {
	case StorePostgres:
		pool, err := NewDBPool(ctx, a.cfg)
		if err != nil {
			return err
		}
		a.pool = pool

		st, err := session.NewPostgresStore(pool)
		if err != nil {
			return err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("session schema: %w", err)
		}
		a.store = st

	case StoreRedis:
		client, err := NewRedisClient(ctx, a.cfg)
		if err != nil {
			return err
		}
		a.redis = client

		st, err := session.NewRedisStore(client, policy)
		if err != nil {
			return err
		}
		a.store = st

	default:
		a.store = session.NewMemoryStore()
	}

	a.log.Info("store.open", "backend", a.cfg.Store)
	return nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Service exposes the protocol service, mainly for tests.
func (a *App) Service() *protocol.Service { return a.svc }

// Run serves HTTP and runs the sweeper until ctx is canceled or either fails.
func (a *App) Run(ctx context.Context) error {
	defer a.closeBackends()

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	srv.RegisterOnShutdown(cancelBase)

	baseURL := runtimeBaseURL(a.cfg.HTTPAddr)
	if a.cfg.TLSEnabled() {
		baseURL = "https://" + strings.TrimPrefix(baseURL, "http://")
	}
	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"base_url", baseURL,
		"ws_url", wsBaseURL(baseURL)+v1.PathEvents,
		"store", a.cfg.Store,
		"tls", a.cfg.TLSEnabled(),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if a.cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(a.cfg.TLSCertFile, a.cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server.fail", "err", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		return a.sweeper.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", "context_done")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	err := g.Wait()
	a.log.Info("server.stopped")
	return err
}

// Close releases backend connections. Run calls it on exit.
func (a *App) Close() { a.closeBackends() }

func (a *App) closeBackends() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Error("store.close.fail", "err", err)
		}
		a.store = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
		a.redis = nil
	}
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func wsBaseURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return "ws://" + base
	}
}
