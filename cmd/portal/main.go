// Command portal serves the demo portal: sign in, the access gate in front of the demo
// microservices and user administration.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/cccteam/accessgate"
	"github.com/cccteam/accessgate/backend"
	"github.com/cccteam/accessgate/internal/config"
	"github.com/cccteam/accessgate/sessionstorage"
	"github.com/cccteam/accessgate/timewindow"
	"github.com/cccteam/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/errors/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.FromCtx(ctx).Error(err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config.Load()")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	presenter, err := timewindow.NewPresenter(cfg.DisplayTimeZone)
	if err != nil {
		return errors.Wrap(err, "timewindow.NewPresenter()")
	}

	be, err := backend.New(cfg.BackendURL, backend.WithTimeout(cfg.BackendTimeout), backend.WithExchangePath(cfg.ExchangePath))
	if err != nil {
		return errors.Wrap(err, "backend.New()")
	}

	opts := []accessgate.Option{
		accessgate.WithCookieDomain(cfg.CookieDomain),
		accessgate.WithSecureCookies(cfg.SecureCookies),
		accessgate.WithSessionTimeout(cfg.SessionTimeout),
		accessgate.WithMetrics(registry),
		accessgate.WithPresenter(presenter),
		accessgate.WithPendingURL(cfg.PendingURL),
		accessgate.WithHomeURL(cfg.HomeURL),
	}
	if cfg.XSRF {
		opts = append(opts, accessgate.WithXSRFProtection())
	}
	for name, target := range cfg.Services {
		opts = append(opts, accessgate.WithService(name, target))
	}

	mirror, closeMirror, err := openMirror(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeMirror()
	if mirror != nil {
		opts = append(opts, accessgate.WithMirror(mirror))
		go sessionstorage.Purge(ctx, mirror, cfg.PurgeInterval, cfg.SessionTimeout)
	}

	portal, err := accessgate.New(be, cfg.CookieKey, cfg.IssuerURL, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL, opts...)
	if err != nil {
		return errors.Wrap(err, "accessgate.New()")
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Mount("/", portal.Routes())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.FromCtx(ctx).Infof("portal listening on %s (session store %s)", cfg.HTTPAddr, cfg.SessionStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- errors.Wrap(err, "http.Server.ListenAndServe()")
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http.Server.Shutdown()")
	}

	return nil
}

// openMirror returns the server side session mirror selected by SESSION_STORE, or nil when
// the session lives in the browser cookie only.
func openMirror(ctx context.Context, cfg *config.Config) (sessionstorage.Mirror, func(), error) {
	switch cfg.SessionStore {
	case config.StoreMemory:
		return sessionstorage.NewMemory(), func() {}, nil
	case config.StorePostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "pgxpool.ParseConfig()")
		}
		poolCfg.MaxConns = int32(cfg.DBMaxConns)

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, errors.Wrap(err, "pgxpool.NewWithConfig()")
		}

		return sessionstorage.NewPostgres(pool), pool.Close, nil
	case config.StoreSpanner:
		client, err := spanner.NewClient(ctx, cfg.SpannerDB)
		if err != nil {
			return nil, nil, errors.Wrap(err, "spanner.NewClient()")
		}

		return sessionstorage.NewSpanner(client), client.Close, nil
	}

	return nil, func() {}, nil
}
