package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/internal/notification"
	"github.com/wonny/orion/internal/provider"
	"github.com/wonny/orion/internal/storage"
	"github.com/wonny/orion/internal/universe"
	"github.com/wonny/orion/pkg/config"
	"github.com/wonny/orion/pkg/httputil"
	"github.com/wonny/orion/pkg/logger"
	"github.com/wonny/orion/pkg/metrics"
	"github.com/wonny/orion/pkg/redis"
)

// app holds the shared clients a command is built from
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	redis   *redis.Client
	metrics *metrics.Recorder
	http    *httputil.Client
}

// newApp loads config and connects shared clients
func newApp() (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		// cache and distributed rate limit are optional
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rdb = redis.Disabled()
	}

	return &app{
		cfg:     cfg,
		log:     log,
		redis:   rdb,
		metrics: metrics.NewDefault(),
		http:    httputil.New(cfg, log),
	}, nil
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}

func (a *app) provider() (contracts.Provider, error) {
	return provider.New(a.cfg, provider.Deps{
		Redis:   a.redis,
		Metrics: a.metrics,
		Logger:  a.log,
	})
}

func (a *app) repository(ctx context.Context) (contracts.ResultRepository, error) {
	repo, err := storage.Open(ctx, a.cfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return repo, nil
}

func (a *app) resolver() *universe.Resolver {
	return universe.NewResolver(a.http, a.log)
}

// notifier returns nil when no channel is configured
func (a *app) notifier() (*notification.Service, error) {
	svc, err := notification.New(a.cfg.Notification, a.http, a.log)
	if errors.Is(err, notification.ErrNotConfigured) {
		return nil, nil
	}
	return svc, err
}

// serveMetrics exposes /metrics on MetricsPort until ctx ends
func (a *app) serveMetrics(ctx context.Context) {
	if !a.cfg.MetricsEnabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + a.cfg.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.WithField("port", a.cfg.MetricsPort).Info("Metrics endpoint started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("Metrics endpoint failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
