// Command worker runs the scheduled maintenance jobs of the practice
// server. Today that is the follow-up repair job, which creates the child
// exercise for any recorded call whose follow-up was never written.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rychipman/bridge-practice/config"
	"github.com/rychipman/bridge-practice/internal/bootstrap"
	"github.com/rychipman/bridge-practice/internal/infrastructure/scheduler"
	"github.com/rychipman/bridge-practice/internal/infrastructure/scheduler/jobs"
	"github.com/rychipman/bridge-practice/internal/infrastructure/service"
	"github.com/rychipman/bridge-practice/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "run every job once and exit")
	envFile := flag.String("env", ".env", "dotenv file to load")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, *envFile, *once); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, envFile string, once bool) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load(envFile)
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
	}).With(logger.Component("worker"))
	slog.SetDefault(log)

	log.Info("starting bridge practice worker",
		"env", cfg.App.Environment,
		"storage", cfg.Database.Driver,
		"timezone", cfg.App.Location.String(),
	)

	if !cfg.Scheduler.Enabled && !once {
		log.Info("scheduler disabled, nothing to do")
		return nil
	}

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
	// 4. JOBS
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:       log,
		Timezone:     cfg.App.Location,
		TickInterval: cfg.Scheduler.TickInterval,
	})

	if cfg.Features.IsEnabled(config.FeatureRepairFollowUps) {
		schedule, err := scheduler.ParseSchedule(cfg.Scheduler.RepairSchedule)
		if err != nil {
			return fmt.Errorf("invalid repair schedule: %w", err)
		}
		job := jobs.NewRepairFollowUpsJob(storage.Practice, service.NewIDGenerator(), nil, log, jobs.RepairFollowUpsConfig{
			MaxRepairs: cfg.Scheduler.RepairMaxPerRun,
			Timeout:    cfg.Scheduler.JobTimeout,
		})
		if err := sched.Register(job, schedule); err != nil {
			return err
		}
	}

	registered := sched.ListJobs()
	if len(registered) == 0 {
		log.Info("no jobs enabled")
		return nil
	}

	if once {
		var failed int
		for _, info := range registered {
			if _, err := sched.RunNow(ctx, info.Name); err != nil {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d jobs failed", failed, len(registered))
		}
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. START
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	for _, info := range registered {
		log.Info("job scheduled",
			"job", info.Name,
			"schedule", info.Schedule,
			"next_run", info.NextRun.Format(time.RFC3339),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	if err := sched.Stop(); err != nil {
		log.Warn("scheduler stop", logger.Err(err))
	}

	snap := sched.Metrics()
	log.Info("bridge practice worker stopped",
		"executions", snap.TotalExecutions,
		"failures", snap.TotalFailures,
	)
	return nil
}
