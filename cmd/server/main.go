package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	httpAdapter "github.com/finbooks/journal/internal/adapter/http"
	"github.com/finbooks/journal/internal/adapter/http/handler"
	postgresRepo "github.com/finbooks/journal/internal/adapter/repository/postgres"
	redisRepo "github.com/finbooks/journal/internal/adapter/repository/redis"
	"github.com/finbooks/journal/internal/infrastructure/config"
	"github.com/finbooks/journal/internal/infrastructure/dispatcher"
	"github.com/finbooks/journal/internal/infrastructure/logger"
	"github.com/finbooks/journal/internal/infrastructure/metrics"
	"github.com/finbooks/journal/internal/infrastructure/postgres"
	"github.com/finbooks/journal/internal/infrastructure/redis"
	"github.com/finbooks/journal/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	log.Logger = appLogger

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	appLogger.Info().Msg("connected to postgres")

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		appLogger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	appLogger.Info().Msg("connected to redis")

	appMetrics := metrics.New()

	// Repositories and infrastructure
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	journalRepo := postgresRepo.NewJournalRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool, cfg.DispatchStagedGrace)
	sagaRepo := postgresRepo.NewSagaRepository(pool)
	retrier := postgresRepo.NewRetrier(appLogger)
	idGen := postgresRepo.NewULIDGenerator()
	locker := redisRepo.NewEntryLocker(redisClient, cfg.EntryLockTTL, cfg.EntryLockWait)

	// Use cases
	journalUC := usecase.NewJournalUseCase(txManager, accountRepo, journalRepo, outboxRepo, locker, idGen, appMetrics).
		WithRetrier(retrier)
	orchestrator := usecase.NewSagaOrchestrator(sagaRepo, appLogger, appMetrics).
		WithStepTimeout(cfg.SagaStepTimeout)
	postingUC := usecase.NewPostingUseCase(journalUC, outboxRepo, orchestrator, idGen)
	batchUC := usecase.NewBatchUseCase(postingUC, journalUC, orchestrator, idGen, appLogger, appMetrics)

	// Outbox dispatcher
	registry := dispatcher.NewRegistry(appLogger)
	outboxDispatcher := dispatcher.New(dispatcher.Config{
		OutboxRepo:  outboxRepo,
		JournalRepo: journalRepo,
		Transport:   dispatcher.NewLogTransport(appLogger),
		Registry:    registry,
		Logger:      appLogger,
		Metrics:     appMetrics,
		BatchSize:   cfg.DispatchBatchSize,
		Interval:    cfg.DispatchInterval,
		MaxAttempts: cfg.DispatchMaxAttempts,
	})

	dispatchCtx, stopDispatcher := context.WithCancel(ctx)
	defer stopDispatcher()

	go func() {
		if err := outboxDispatcher.Start(dispatchCtx); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error().Err(err).Msg("outbox dispatcher stopped")
		}
	}()

	// Router and server
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		JournalHandler: handler.NewJournalHandler(journalUC, postingUC, batchUC, outboxRepo),
		AccountHandler: handler.NewAccountHandler(accountRepo),
		SagaHandler:    handler.NewSagaHandler(sagaRepo),
		OutboxHandler:  handler.NewOutboxHandler(outboxRepo),
		HealthHandler:  handler.NewHealthHandler(pool, redisClient),
		Logger:         appLogger,
		RateLimit:      cfg.HTTPRateLimit,
		RateBurst:      cfg.HTTPRateBurst,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	go func() {
		appLogger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server...")
	stopDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server stopped")
}
