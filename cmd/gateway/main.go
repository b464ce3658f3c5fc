// Command gateway runs the release-governance API gateway.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/relgov/gateway/internal/auth"
	"github.com/relgov/gateway/internal/backend"
	"github.com/relgov/gateway/internal/config"
	"github.com/relgov/gateway/internal/observability"
	"github.com/relgov/gateway/internal/promotion"
	"github.com/relgov/gateway/internal/proxy"
	"github.com/relgov/gateway/internal/ratelimit"
	"github.com/relgov/gateway/internal/ratelimit/store"
	"github.com/relgov/gateway/internal/server"
)

const serviceName = "release-gateway"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger().Fatal("configuration error", observability.Error(err))
	}

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		bootLogger().Fatal("logger init failed", observability.Error(err))
	}
	defer func() { _ = logger.Sync() }()
	observability.SetGlobalLogger(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("gateway exited with error", observability.Error(err))
	}
}

func bootLogger() observability.Logger {
	logger, _ := observability.NewLogger(observability.DefaultLogConfig())
	return logger
}

func run(cfg *config.Config, logger observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("gateway")

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		Enabled:      cfg.TracingEnabled,
	})
	if err != nil {
		return err
	}

	// Rate limit counters live in Redis when an address is configured so
	// replicas share one budget, and in process memory otherwise.
	var counterStore store.Store
	if cfg.RedisAddr != "" {
		redisStore, err := store.NewRedisStore(cfg.RedisAddr)
		if err != nil {
			return err
		}
		counterStore = redisStore
		logger.Info("rate limiting backed by redis",
			observability.String("addr", cfg.RedisAddr))
	} else {
		counterStore = store.NewMemoryStore()
	}
	defer func() { _ = counterStore.Close() }()

	// The anonymous tier always runs the fixed window so its per-address
	// counters can live in the shared store; the identity tier's algorithm
	// is selectable.
	anonLimiter := ratelimit.NewFixedWindowLimiter(
		counterStore, cfg.AnonymousLimit.MaxRequests, cfg.AnonymousLimit.Window)
	identLimiter, err := ratelimit.New(cfg.RateLimitAlgorithm,
		counterStore, cfg.IdentityLimit.MaxRequests, cfg.IdentityLimit.Window)
	if err != nil {
		return err
	}

	validator, err := auth.NewValidator(cfg.JWTSecret, cfg.JWTAlgorithm,
		auth.WithValidatorLogger(logger))
	if err != nil {
		return err
	}
	authMW := auth.NewMiddleware(validator,
		auth.WithLogger(logger),
		auth.WithMetrics(metrics),
	)

	var client backend.Client
	httpClient, err := backend.NewHTTPClient(cfg.BackendURL,
		backend.WithClientLogger(logger),
		backend.WithClientMetrics(metrics),
		backend.WithTimeout(cfg.BackendTimeout),
	)
	if err != nil {
		return err
	}
	client = httpClient
	if cfg.CircuitBreakerEnabled {
		client = backend.NewBreakerClient(httpClient, logger)
	}

	policy := promotion.DefaultPolicy()
	if cfg.PolicyFile != "" {
		policy, err = promotion.LoadPolicy(cfg.PolicyFile)
		if err != nil {
			return err
		}
	}
	policyStore := promotion.NewPolicyStore(policy)
	if cfg.PolicyFile != "" {
		watcher, err := promotion.NewPolicyWatcher(cfg.PolicyFile, policyStore, logger)
		if err != nil {
			return err
		}
		go watcher.Run(ctx)
	}

	engine := promotion.NewEngine(client, policyStore,
		promotion.WithEngineLogger(logger),
		promotion.WithEngineMetrics(metrics),
	)

	router := server.NewRouter(server.RouterDeps{
		Logger:       logger,
		Metrics:      metrics,
		Tracer:       tracer,
		AuthMW:       authMW,
		AnonLimiter:  anonLimiter,
		IdentLimiter: identLimiter,
		Proxy:        proxy.New(client, logger),
		PromotionH:   promotion.NewHandler(engine),
	})

	srv := server.New(cfg.Port, router, logger)

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Start() }()

	var metricsSrv *server.Server
	if cfg.MetricsEnabled {
		metricsSrv = server.NewMetricsServer(cfg.MetricsPort, metrics, logger)
		go func() { errCh <- metricsSrv.Start() }()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", observability.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", observability.Error(err))
		}
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", observability.Error(err))
	}

	return nil
}
