package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aescanero/dago-adapters/pkg/llm"
	"github.com/aescanero/dago-childcare-router/internal/config"
	"github.com/aescanero/dago-childcare-router/internal/delegate"
	"github.com/aescanero/dago-childcare-router/internal/registry"
	"github.com/aescanero/dago-childcare-router/internal/router"
	"github.com/aescanero/dago-childcare-router/internal/worker"
	"github.com/aescanero/dago-libs/pkg/ports"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set at build time
	Version = "dev"
	// BuildTime is set at build time
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting routing worker",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("worker_id", cfg.WorkerID),
	)

	logger.Info("configuration loaded", zap.String("config", cfg.String()))

	// The registry is complete before any traffic is read
	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		logger.Fatal("failed to load routing registry", zap.Error(err))
	}
	logger.Info("routing registry loaded", zap.Strings("specialists", reg.IDs()))

	kind, err := router.ParseKind(cfg.Strategy)
	if err != nil {
		logger.Fatal("invalid routing strategy", zap.Error(err))
	}

	var (
		resolver worker.Resolver
		opts     = []router.Option{router.WithLogger(logger)}
	)
	if kind == router.KindDelegating {
		coordinator, err := initCoordinator(cfg, reg, logger)
		if err != nil {
			logger.Fatal("failed to initialize coordinator", zap.Error(err))
		}
		resolver = coordinator
		opts = append(opts, router.WithDelegate(coordinator))
	}

	strategy, err := router.New(kind, reg, opts...)
	if err != nil {
		logger.Fatal("failed to initialize routing strategy", zap.Error(err))
	}
	logger.Info("routing strategy initialized", zap.String("strategy", strategy.Name()))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	w := worker.NewWorker(cfg, redisClient, strategy, resolver, logger)
	if err := w.Start(); err != nil {
		logger.Fatal("failed to start worker", zap.Error(err))
	}

	healthServer := worker.NewHealthServer(cfg.HealthPort, redisClient, strategy, logger)
	if err := healthServer.Start(); err != nil {
		logger.Fatal("failed to start health server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("routing worker running, press Ctrl+C to stop")
	<-sigChan

	logger.Info("shutdown signal received, stopping worker")

	if err := healthServer.Stop(); err != nil {
		logger.Error("failed to stop health server", zap.Error(err))
	}

	if err := w.Stop(); err != nil {
		logger.Error("failed to stop worker", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("failed to close redis connection", zap.Error(err))
	}

	logger.Info("worker stopped gracefully")
}

// initLogger initializes the logger
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

// initCoordinator builds the coordinator delegate; without an API key it keeps every request
func initCoordinator(cfg *config.Config, reg *registry.Registry, logger *zap.Logger) (*delegate.Coordinator, error) {
	var llmClient ports.LLMClient
	if cfg.LLMAPIKey != "" {
		client, err := llm.NewClient(&llm.Config{
			Provider: cfg.LLMProvider,
			APIKey:   cfg.LLMAPIKey,
			Logger:   logger,
		})
		if err != nil {
			logger.Warn("failed to initialize llm client (coordinator will keep deferred requests)",
				zap.Error(err),
			)
		} else {
			llmClient = client
			logger.Info("llm client initialized",
				zap.String("provider", cfg.LLMProvider),
				zap.String("model", cfg.LLMModel),
			)
		}
	} else {
		logger.Warn("llm api key not provided (coordinator will keep deferred requests)")
	}

	return delegate.NewCoordinator(reg, llmClient, delegate.Config{Model: cfg.LLMModel}, logger)
}
