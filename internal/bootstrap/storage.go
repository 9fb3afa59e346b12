// Package bootstrap opens the storage and cache backends selected by the
// configuration. It is shared by the server, the worker and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rychipman/bridge-practice/config"
	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/memory"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/postgres"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/redis"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/sqlite"
	"github.com/rychipman/bridge-practice/pkg/retry"
)

// Pinger reports backend reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Storage bundles the repositories of one backend.
type Storage struct {
	Driver   string
	Practice practice.Store
	Learners learner.Repository

	// Pinger is nil for the in-memory driver.
	Pinger Pinger

	// Health reports pool statistics along with reachability. Only the
	// postgres driver sets it.
	Health func(ctx context.Context) (string, error)

	close func() error
}

// Close releases the backend.
func (s *Storage) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStorage connects to the configured backend, retrying the dial up to
// attempts times, and applies migrations when asked to.
func OpenStorage(ctx context.Context, cfg config.DatabaseConfig, attempts int, log *slog.Logger) (*Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		log.Warn("using in-memory storage; data is lost on restart")
		return &Storage{Driver: cfg.Driver, Practice: store, Learners: store}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite storage opened", "path", cfg.SQLitePath)
		return &Storage{Driver: cfg.Driver, Practice: store, Learners: store, Pinger: store, close: store.Close}, nil

	case config.DriverPostgres:
		conn, err := retry.DoWithData(ctx, dependencyRetrier(attempts, "postgres", log),
			func(ctx context.Context) (*postgres.Connection, error) {
				return postgres.Connect(ctx, cfg.URL, postgres.PoolOptions{
					MaxConns:        int32(cfg.MaxConns),
					MinConns:        int32(cfg.MinConns),
					MaxConnLifetime: cfg.ConnMaxLifetime,
					MaxConnIdleTime: cfg.ConnMaxIdleTime,
				})
			})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		if cfg.MigrateOnStart {
			migrator := postgres.NewMigrator(conn)
			if err := migrator.Migrate(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			status, err := migrator.Status(ctx)
			if err != nil {
				conn.Close()
				return nil, err
			}
			applied, latest, pending := summarizeMigrations(status)
			log.Info("postgres migrations applied",
				"applied", applied,
				"schema_version", latest,
				"pending", pending,
			)
		}

		return &Storage{
			Driver:   cfg.Driver,
			Practice: postgres.NewPracticeStore(conn),
			Learners: postgres.NewLearnerRepository(conn),
			Pinger:   conn,
			Health: func(ctx context.Context) (string, error) {
				return describeHealth(conn.Health(ctx))
			},
			close: func() error {
				conn.Close()
				return nil
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func describeHealth(status *postgres.HealthStatus, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if !status.Healthy {
		return "", errors.New(status.Error)
	}
	return status.String(), nil
}

// summarizeMigrations counts applied migrations, finds the highest applied
// version and lists the names still pending.
func summarizeMigrations(status []postgres.Migration) (applied, latest int, pending []string) {
	for _, m := range status {
		if !m.IsApplied {
			pending = append(pending, m.Name)
			continue
		}
		applied++
		if m.Version > latest {
			latest = m.Version
		}
	}
	return applied, latest, pending
}

// OpenRedis dials Redis with the startup retry policy.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, attempts int, log *slog.Logger) (*redis.Cache, error) {
	rc := redis.DefaultConfig()
	rc.Host = cfg.Host
	rc.Port = cfg.Port
	rc.Password = cfg.Password
	rc.DB = cfg.DB
	rc.PoolSize = cfg.PoolSize
	rc.MinIdleConns = cfg.MinIdleConns
	rc.DialTimeout = cfg.DialTimeout
	rc.ReadTimeout = cfg.ReadTimeout
	rc.WriteTimeout = cfg.WriteTimeout

	cache, err := retry.DoWithData(ctx, dependencyRetrier(attempts, "redis", log),
		func(ctx context.Context) (*redis.Cache, error) {
			return redis.NewCache(ctx, rc)
		})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info("redis connection established", "addr", rc.Addr())
	return cache, nil
}

func dependencyRetrier(attempts int, name string, log *slog.Logger) *retry.Retrier {
	opts := []retry.Option{
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			log.Warn("dependency not reachable, retrying",
				"dependency", name,
				"attempt", attempt,
				"delay", delay.String(),
				"error", err,
			)
		}),
	}
	if attempts > 0 {
		opts = append(opts, retry.WithMaxAttempts(attempts))
	}
	return retry.Dependency(opts...)
}
