package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	webAdapter "inventory-ledger/internal/adapters/web"
	"inventory-ledger/internal/app"
	"inventory-ledger/internal/config"
	"inventory-ledger/internal/core"
	"inventory-ledger/internal/db"
	"inventory-ledger/internal/idempotency"
	"inventory-ledger/internal/logging"
	"inventory-ledger/internal/store/memory"
	"inventory-ledger/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store core.Store
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set; using the in-memory store, data will not survive a restart")
		store = memory.New()
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, logger); err != nil {
				logger.Fatalf("migrate: %v", err)
			}
		}
		store = postgres.New(pool)
	}

	var idem idempotency.Store = idempotency.NewMemoryStore(cfg.IdempotencyTTL)
	if cfg.RedisAddress != "" {
		client, err := idempotency.NewRedisClient(ctx, cfg.RedisAddress)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer client.Close()
		idem = idempotency.NewRedisStore(client, cfg.IdempotencyTTL, cfg.TxTimeout+5*time.Second, logger)
	}

	var (
		metrics        *core.Metrics
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = core.NewMetrics(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	svc := app.New(store, app.Options{
		TxTimeout: cfg.TxTimeout,
		Rules:     cfg.AccountRules(),
		Metrics:   metrics,
		Logger:    logger,
	})
	if _, err := svc.EnsureDefaultAccounts(ctx); err != nil {
		logger.Fatalf("default accounts: %v", err)
	}

	srv := &http.Server{
		Addr: ":" + cfg.ServerPort,
		Handler: webAdapter.NewHandler(svc, webAdapter.Options{
			Logger:         logger,
			Idempotency:    idem,
			AllowedOrigins: cfg.Origins(),
			MetricsHandler: metricsHandler,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http server: %v", err)
			stop()
		}
	}()
	logger.WithField("addr", srv.Addr).Info("server started")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	logger.Info("graceful shutdown complete")
}
