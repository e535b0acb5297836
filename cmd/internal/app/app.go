// Package app wires the pulse server runtime: config, logging, metrics,
// stores, HTTP routes, and the realtime gateway.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pulse/cmd/internal/api"
	"pulse/cmd/internal/metrics"
	"pulse/cmd/internal/notification"
	"pulse/cmd/internal/presence"
	"pulse/cmd/internal/realtime"
	"pulse/cmd/internal/users"
	"pulse/cmd/security/passphrase"
	"pulse/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Store is a small app-level lifecycle abstraction for whatever backs the
// stores, so New can hand back one thing to close on shutdown.
type Store interface {
	Close(ctx context.Context) error
}

type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

type pgStore struct{ pool *pgxpool.Pool }

func (s pgStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

type redisStore struct{ client *redis.Client }

func (s redisStore) Close(_ context.Context) error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// App is the pulse server runtime.
type App struct {
	cfg Config
	log Logger

	store   Store
	pool    *pgxpool.Pool
	rdb     *redis.Client
	backend string

	registry *prometheus.Registry

	ws  *realtime.WSGateway
	api *api.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	st, pool, rdb, backend, stores, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	svc := presence.NewService(log, stores.sessions, cfg.PresenceWindow)
	hub := realtime.NewHub(log, m)
	ws := realtime.NewWSGateway(log, hub, svc, m, realtime.Options{
		DefaultDB:      cfg.DefaultDB,
		OriginPatterns: cfg.WSOriginPatterns,
		WriteTimeout:   cfg.WSWriteTimeout,
		SendQueueSize:  cfg.WSSendQueueSize,
		RateEvents:     cfg.WSRateEvents,
		RateWindow:     cfg.WSRateWindow,
	})

	gate := passphrase.NewGate(log, cfg.Passphrase)
	codec, err := token.NewCodec(cfg.Passphrase, []byte(cfg.TokenHMACKey))
	if err != nil {
		st.Close(context.Background()) //nolint:errcheck
		return nil, err
	}

	handler, err := api.NewHandler(log, gate, codec, svc, stores.users, stores.notifications, hub, m, cfg.DefaultDB)
	if err != nil {
		st.Close(context.Background()) //nolint:errcheck
		return nil, err
	}

	// Provision the default database up front so the first frontend call
	// does not race schema creation.
	if err := bootstrapDefaultDB(context.Background(), cfg.DefaultDB, svc, stores); err != nil {
		st.Close(context.Background()) //nolint:errcheck
		return nil, err
	}

	return &App{
		cfg:      cfg,
		log:      log,
		store:    st,
		pool:     pool,
		rdb:      rdb,
		backend:  backend,
		registry: registry,
		ws:       ws,
		api:      handler,
	}, nil
}

type storeBundle struct {
	sessions      presence.Store
	users         users.Store
	notifications notification.Store
}

// newStores decides between Postgres, Redis, and in-memory persistence.
// Postgres backs everything; Redis backs sessions (the hot path) with
// profile data in memory; the in-memory mode is for dev and tests.
func newStores(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, *redis.Client, string, storeBundle, error) {
	switch {
	case cfg.DatabaseURL != "":
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, nil, "", storeBundle{}, err
		}

		sess, err := presence.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, nil, nil, "", storeBundle{}, err
		}
		us, err := users.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, nil, nil, "", storeBundle{}, err
		}
		ns, err := notification.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, nil, nil, "", storeBundle{}, err
		}

		log.Info("store.postgres")
		return pgStore{pool: pool}, pool, nil, "postgres", storeBundle{sess, us, ns}, nil

	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, "", storeBundle{}, err
		}

		sess, err := presence.NewRedisStore(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, "", storeBundle{}, err
		}

		log.Info("store.redis", "profiles", "inmemory")
		return redisStore{client: client}, nil, client, "redis",
			storeBundle{sess, users.NewInMemoryStore(), notification.NewInMemoryStore()}, nil

	default:
		log.Info("store.inmemory")
		return nopStore{}, nil, nil, "memory",
			storeBundle{presence.NewInMemoryStore(), users.NewInMemoryStore(), notification.NewInMemoryStore()}, nil
	}
}

func bootstrapDefaultDB(ctx context.Context, db string, svc *presence.Service, stores storeBundle) error {
	if err := svc.InitDB(ctx, db); err != nil {
		return err
	}
	if err := stores.users.Init(ctx, db); err != nil {
		return err
	}
	if err := stores.notifications.Init(ctx, db); err != nil {
		return err
	}
	if err := svc.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	if err := stores.users.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	return stores.notifications.EnsureIndexes(ctx, db)
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "backend", a.backend, "window", a.cfg.PresenceWindow.String())

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

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
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
