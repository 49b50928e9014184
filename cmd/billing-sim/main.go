package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/annotation"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/api"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/billing"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/config"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/currency"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/observability"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/subscription"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "billing-sim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"store":      cfg.Store.Type,
		"annotation": cfg.Annotation.Provider,
		"rates":      cfg.Currency.Source,
	}).Info("starting billing simulator")

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	ctx := context.Background()
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Subscription store.
	var (
		store subscription.Store
		db    *sql.DB
	)
	switch cfg.Store.Type {
	case "sqlite":
		sqlStore, err := subscription.NewSQLiteStore(cfg.Store.SQLiteDSN)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		defer sqlStore.Close()
		store = sqlStore
		db = sqlStore.DB()
	default:
		store = subscription.NewMemoryStore()
	}

	// Annotation provider.
	var annotator annotation.Provider
	switch cfg.Annotation.Provider {
	case "static":
		annotator = &annotation.StaticProvider{MaxTags: cfg.Annotation.MaxTags}
	default:
		annotator = annotation.NewChatProvider(annotation.ChatConfig{
			BaseURL: cfg.Annotation.BaseURL,
			APIKey:  cfg.Annotation.APIKey,
			Model:   cfg.Annotation.Model,
			Timeout: cfg.Annotation.Timeout,
		}, logger, metrics)
	}

	// Exchange rate source, wrapped in the layered cache.
	var rateSource currency.RateSource
	switch cfg.Currency.Source {
	case "file":
		fileSource, err := currency.NewFileSource(cfg.Currency.RatesFile, logger)
		if err != nil {
			return fmt.Errorf("failed to load rates file: %w", err)
		}
		defer fileSource.Close()
		if cfg.Currency.WatchRatesFile {
			if err := fileSource.Watch(); err != nil {
				return fmt.Errorf("failed to watch rates file: %w", err)
			}
		}
		rateSource = fileSource
	default:
		rateSource = currency.NewAPISource(currency.APIConfig{
			BaseURL: cfg.Currency.APIBaseURL,
			Timeout: cfg.Currency.APITimeout,
		})
	}

	var redisClient *redis.Client
	if cfg.Currency.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Currency.RedisAddr,
			Password: cfg.Currency.RedisPassword,
			DB:       cfg.Currency.RedisDB,
		})
		defer redisClient.Close()
	}

	rateSource = currency.NewCachedSource(rateSource, currency.CacheConfig{
		TTL:    cfg.Currency.CacheTTL,
		L1Size: cfg.Currency.CacheSize,
	}, redisClient, metrics)
	converter := currency.NewRateConverter(rateSource, logger, metrics)

	// Core services.
	service := subscription.NewService(store, annotator, logger, metrics)
	ledger := billing.NewLedger(metrics)
	scheduler := billing.NewScheduler(store, converter, ledger,
		billing.WithTickPeriod(cfg.Billing.TickPeriod),
		billing.WithTolerance(cfg.Billing.Tolerance),
		billing.WithMaxConcurrentCharges(cfg.Billing.MaxConcurrentCharges),
		billing.WithLogger(logger),
		billing.WithMetrics(metrics),
	)

	if cfg.Billing.Enabled {
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start billing scheduler: %w", err)
		}
	} else {
		logger.Warn("billing scheduler disabled, subscriptions will not be charged")
	}

	// HTTP server.
	handlers := api.NewSubscriptionHandlers(service, ledger, logger)
	server := api.NewServer(handlers, api.ServerOptions{
		Logger:         logger,
		Metrics:        metrics,
		HealthChecker:  observability.NewHealthChecker(db, redisClient),
		TracingEnabled: cfg.Observability.OTelEnabled,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		scheduler.Stop()
		return nil
	})
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	shutdownErr := make(chan error, 1)
	go func() {
		shutdownErr <- shutdown.WaitForShutdown()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case err := <-shutdownErr:
		return err
	}
}
