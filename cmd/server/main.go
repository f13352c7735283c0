package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"railalert/internal/audit"
	bchandler "railalert/internal/broadcast/handler"
	bcservice "railalert/internal/broadcast/service"
	"railalert/internal/gateway/twilio"
	"railalert/internal/platform/config"
	"railalert/internal/platform/httpserver"
	"railalert/internal/platform/logger"
	"railalert/internal/platform/metrics"
	"railalert/internal/platform/postgres"
	redisclient "railalert/internal/platform/redis"
	subhandler "railalert/internal/subscription/handler"
	subservice "railalert/internal/subscription/service"
	"railalert/internal/subscription/store"
	httptransport "railalert/internal/transport/http"
	"railalert/internal/webhook"
	"railalert/pkg/platform/circuit"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("railalert stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	health := map[string]httptransport.HealthCheck{}

	var (
		subStore subservice.Store
		archive  bcservice.Archive
	)
	pool, err := postgres.Connect(ctx, cfg.Postgres)
	switch {
	case errors.Is(err, postgres.ErrNotConfigured):
		log.Warn("DATABASE_URL not set, subscriptions and audit archive are in-memory only")
		subStore = store.NewInMemory()
		archive = audit.NewInMemoryArchive()
	case err != nil:
		return fmt.Errorf("connect postgres: %w", err)
	default:
		defer pool.Close()
		if cfg.Postgres.MigrateOnStart {
			if err := postgres.Migrate(ctx, pool, log); err != nil {
				return err
			}
		}
		subStore = store.NewPostgres(pool)
		archive = audit.NewPostgresArchive(pool)
		health["postgres"] = pool.Ping
	}

	var cache subservice.Cache
	rc, err := redisclient.New(ctx, cfg.Redis)
	switch {
	case errors.Is(err, redisclient.ErrNotConfigured):
		cache = store.NewInMemoryCache()
	case err != nil:
		return fmt.Errorf("connect redis: %w", err)
	default:
		defer func() { _ = rc.Close() }()
		cache = store.NewRedisCache(rc.Client, cfg.Redis.KeyPrefix)
		health["redis"] = rc.Health
	}

	var gateway bcservice.Gateway
	if cfg.Twilio.Enabled() {
		client, err := twilio.New(cfg.Twilio, twilio.WithLogger(log), twilio.WithMetrics(m))
		if err != nil {
			return err
		}
		gateway = client
	} else {
		log.Warn("twilio credentials not set, messages are logged instead of sent")
		gateway = twilio.NewLogGateway(log)
	}

	registry, err := subservice.New(subStore, cache,
		subservice.WithLogger(log),
		subservice.WithMetrics(m),
		subservice.WithBreaker(circuit.New("subscription-store",
			circuit.WithFailureThreshold(cfg.Breaker.FailureThreshold),
			circuit.WithSuccessThreshold(cfg.Breaker.SuccessThreshold),
			circuit.WithCooldown(cfg.Breaker.Cooldown),
		)),
	)
	if err != nil {
		return err
	}
	resolver, err := subservice.NewResolver(registry, cfg.Alerts.TestRecipient)
	if err != nil {
		return fmt.Errorf("OPERATOR_TEST_RECIPIENT: %w", err)
	}
	dispatcher, err := bcservice.New(gateway, resolver, audit.NewTrail(cfg.Alerts.AuditCapacity),
		bcservice.WithLogger(log),
		bcservice.WithMetrics(m),
		bcservice.WithArchive(archive),
		bcservice.WithDirectory(registry),
		bcservice.WithConcurrency(cfg.Alerts.DispatchConcurrency),
	)
	if err != nil {
		return err
	}

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}
	router := httptransport.NewRouter(
		httptransport.Config{AdminKey: cfg.AdminKey, RequestTimeout: cfg.RequestTimeout},
		httptransport.Deps{
			Subscriptions: subhandler.New(registry, log),
			Alerts:        bchandler.New(dispatcher, log),
			Webhook:       webhook.New(registry, log),
			Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			Health:        health,
			Logger:        log,
		},
	)
	srv := httpserver.New(cfg.Addr, router, cfg.RequestTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting railalert", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
