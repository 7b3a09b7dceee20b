package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kevin07696/book-market-service/internal/adapters/kafka"
	"github.com/kevin07696/book-market-service/internal/adapters/ledger"
	"github.com/kevin07696/book-market-service/internal/adapters/pinetwork"
	"github.com/kevin07696/book-market-service/internal/api/rest"
	"github.com/kevin07696/book-market-service/internal/config"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
	catalogHandler "github.com/kevin07696/book-market-service/internal/handlers/catalog"
	paymentHandler "github.com/kevin07696/book-market-service/internal/handlers/payment"
	payoutHandler "github.com/kevin07696/book-market-service/internal/handlers/payout"
	catalogService "github.com/kevin07696/book-market-service/internal/services/catalog"
	paymentService "github.com/kevin07696/book-market-service/internal/services/payment"
	payoutService "github.com/kevin07696/book-market-service/internal/services/payout"
	"github.com/kevin07696/book-market-service/pkg/middleware"
	"github.com/kevin07696/book-market-service/pkg/observability"
	"github.com/kevin07696/book-market-service/pkg/resilience"
	"github.com/kevin07696/book-market-service/pkg/security"
	"github.com/kevin07696/book-market-service/pkg/shutdown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting book market service",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shut down in reverse order: HTTP, sweeper, limiter, publisher, store, metrics
	sm := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	started := false
	defer func() {
		// Release whatever was opened before startup failed
		if !started {
			sm.Shutdown()
		}
	}()

	healthChecker := observability.NewHealthChecker()
	metricsServer, err := observability.StartMetricsServer(cfg.Server.MetricsPort, healthChecker, logger)
	if err != nil {
		return err
	}
	sm.Register("metrics-server", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})

	store, err := ledger.Open(ctx, &cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	sm.RegisterNoErr("store", store.Close)
	healthChecker.Register("store", store.HealthCheck)

	apiKey, err := resolveAPIKey(ctx, cfg, logger)
	if err != nil {
		return err
	}
	gatewayCfg := pinetwork.DefaultConfig(apiKey)
	gatewayCfg.BaseURL = cfg.Gateway.BaseURL
	gatewayCfg.Timeout = cfg.Gateway.Timeout
	gatewayCfg.MaxRetries = cfg.Gateway.MaxRetries
	gateway := pinetwork.NewClient(gatewayCfg, logger)

	events := initPublisher(cfg.Events, logger)
	sm.RegisterCloser("event-publisher", events)

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	sm.RegisterNoErr("rate-limiter", rateLimiter.Shutdown)

	svcLogger := security.NewZapLogger(logger)
	timeouts := resilience.DefaultTimeoutConfig()

	paymentSvc := paymentService.NewService(store, gateway, events, svcLogger)
	payoutSvc := payoutService.NewService(store, events, svcLogger)
	catalogSvc := catalogService.NewService(store, svcLogger)

	sweeper := paymentService.NewSweeper(paymentSvc, paymentService.SweeperConfig{
		Interval:    cfg.Sweep.Interval,
		MinAge:      cfg.Sweep.MinAge,
		BatchSize:   cfg.Sweep.BatchSize,
		MaxAttempts: cfg.Sweep.MaxAttempts,
	}, timeouts, svcLogger)
	go sweeper.Run(ctx)
	sm.Register("sweeper", sweeper.Stop)

	router := rest.NewRouter(rest.Handlers{
		Payment: paymentHandler.NewHandler(paymentSvc, logger),
		Payout:  payoutHandler.NewHandler(payoutSvc, logger),
		Catalog: catalogHandler.NewHandler(catalogSvc, logger),
	}, rest.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Timeouts:       timeouts,
		RateLimiter:    rateLimiter,
		Production:     cfg.Environment == "production",
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      timeouts.HTTPHandler + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	sm.Register("http-server", func(ctx context.Context) error {
		observability.MarkNotReady()
		return httpServer.Shutdown(ctx)
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	logger.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))

	started = true

	signalCtx, stopWaiting := context.WithCancel(ctx)
	defer stopWaiting()
	go func() {
		select {
		case err := <-serveErr:
			logger.Error("HTTP server failed", zap.Error(err))
			stopWaiting()
		case <-signalCtx.Done():
		}
	}()

	errs := sm.WaitForSignal(signalCtx)
	if len(errs) > 0 {
		return fmt.Errorf("%d components failed to shut down", len(errs))
	}
	return nil
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

func initPublisher(cfg config.EventsConfig, logger *zap.Logger) ports.EventPublisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("No Kafka brokers configured, domain events are discarded")
		return kafka.NopPublisher{}
	}
	return kafka.NewPublisher(kafka.Config{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		WriteTimeout: cfg.WriteTimeout,
		QueueSize:    cfg.QueueSize,
	}, logger)
}
