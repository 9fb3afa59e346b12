// Command server runs the bridge practice HTTP API.
//
// Learners register, ask for the next exercise, submit their call and
// review earlier exercises. Storage is Postgres, SQLite or memory; Redis is
// optional and only fronts deals and the next-exercise lock.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rychipman/bridge-practice/config"
	"github.com/rychipman/bridge-practice/internal/application/command"
	"github.com/rychipman/bridge-practice/internal/application/eventhandler"
	"github.com/rychipman/bridge-practice/internal/application/query"
	"github.com/rychipman/bridge-practice/internal/bootstrap"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/infrastructure/auth"
	"github.com/rychipman/bridge-practice/internal/infrastructure/messaging"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/memory"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/redis"
	"github.com/rychipman/bridge-practice/internal/infrastructure/service"
	httpserver "github.com/rychipman/bridge-practice/internal/interface/http"
	"github.com/rychipman/bridge-practice/internal/interface/http/handlers"
	"github.com/rychipman/bridge-practice/pkg/circuitbreaker"
	"github.com/rychipman/bridge-practice/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
		Format: logger.Format(cfg.Observability.LogFormat),
	})
	slog.SetDefault(log)

	log.Info("starting bridge practice server",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"storage", cfg.Database.Driver,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	storage, err := bootstrap.OpenStorage(ctx, cfg.Database, cfg.App.StartupAttempts, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		log.Info("closing storage...")
		if err := storage.Close(); err != nil {
			log.Warn("failed to close storage", logger.Err(err))
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache *redis.Cache
		dealCache  query.DealCache
		locker     practice.Locker = memory.NewLocker()
	)

	wantsRedis := cfg.Features.IsEnabled(config.FeatureDealCache) ||
		cfg.Features.IsEnabled(config.FeatureDistributedLock)
	if !cfg.Redis.Disabled && wantsRedis {
		redisCache, err = bootstrap.OpenRedis(ctx, cfg.Redis, cfg.App.StartupAttempts, log)
		if err != nil {
			log.Warn("redis unavailable, continuing without it", logger.Err(err))
		} else {
			defer redisCache.Close()

			if cfg.Features.IsEnabled(config.FeatureDealCache) {
				breaker := circuitbreaker.New(circuitbreaker.Config{
					Name:             "redis.deals",
					FailureThreshold: cfg.Redis.BreakerThreshold,
					OpenTimeout:      cfg.Redis.BreakerTimeout,
					OnStateChange: func(name string, from, to circuitbreaker.State) {
						log.Warn("circuit breaker state changed",
							"breaker", name,
							"from", from.String(),
							"to", to.String(),
						)
					},
				})
				dealCache = redis.NewDealCache(redisCache, cfg.Practice.DealCacheTTL).WithBreaker(breaker)
			}
			if cfg.Features.IsEnabled(config.FeatureDistributedLock) {
				locker = redis.NewLocker(redisCache, cfg.Practice.LockTTL)
			}
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. SESSIONS
	// ─────────────────────────────────────────────────────────────────────────
	sessions, err := auth.NewSessions(auth.Config{
		Secret: []byte(cfg.Auth.SessionSecret),
		Issuer: cfg.Auth.SessionIssuer,
		TTL:    cfg.Auth.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create sessions: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	if err := eventhandler.Register(bus,
		eventhandler.NewOnLearnerActivityHandler(storage.Learners, log, 0),
		eventhandler.NewAuditLogHandler(log),
	); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	ids := service.NewIDGenerator()

	deps := httpserver.Dependencies{
		LoginLearner: command.NewLoginLearnerHandler(storage.Learners, sessions, nil),
		SubmitBid:    command.NewSubmitBidHandler(storage.Practice, storage.Learners, ids, nil, log).WithEvents(bus),
		AddComment:   command.NewAddCommentHandler(storage.Practice, storage.Learners, ids, nil).WithEvents(bus),

		NextExercise: query.NewNextExerciseHandler(storage.Practice, ids, nil, log, query.NextExerciseConfig{
			Lookback: cfg.Practice.Lookback,
			Locker:   locker,
		}),
		GetExercise:      query.NewGetExerciseHandler(storage.Practice, dealCache, log),
		ListExerciseBids: query.NewListExerciseBidsHandler(storage.Practice),
		GetExerciseBid:   query.NewGetExerciseBidHandler(storage.Practice),
		ReviewExercises:  query.NewReviewExercisesHandler(storage.Practice),
		GetDeal:          query.NewGetDealHandler(storage.Practice, dealCache),
		GetComment:       query.NewGetCommentHandler(storage.Practice),
		ListLearners:     query.NewListLearnersHandler(storage.Learners),
		GetLearner:       query.NewGetLearnerHandler(storage.Learners),

		Sessions: sessions,
		Logger:   log,
	}
	if cfg.Features.IsEnabled(config.FeatureOpenRegistration) {
		deps.RegisterLearner = command.NewRegisterLearnerHandler(storage.Learners, ids, nil, cfg.Auth.BcryptCost).WithEvents(bus)
	}
	if cfg.Features.IsEnabled(config.FeatureConflictReview) {
		deps.ConflictingExercise = query.NewConflictingExerciseHandler(storage.Practice)
	}

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	switch {
	case storage.Health != nil:
		health.AddDetailedCheck("database", storage.Health)
	case storage.Pinger != nil:
		health.AddCheck("database", handlers.NewPingCheck(storage.Pinger))
	}
	if redisCache != nil {
		health.AddOptionalCheck("redis", handlers.NewPingCheck(redisCache))
	}
	deps.HealthChecker = health

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.EnableCORS = len(cfg.HTTP.AllowedOrigins) > 0
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	server := httpserver.NewServer(httpConfig, deps)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. START
	// ─────────────────────────────────────────────────────────────────────────
	errCh := server.StartAsync()

	log.Info("bridge practice server is running",
		"http_address", httpConfig.Address(),
		"deal_cache", dealCache != nil,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("server error", logger.Err(err))
			runErr = err
		}
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("HTTP server shutdown error", logger.Err(err))
	}

	log.Info("bridge practice server stopped")
	return runErr
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.App.ShutdownTimeout > 0 {
		return cfg.App.ShutdownTimeout
	}
	return 30 * time.Second
}
