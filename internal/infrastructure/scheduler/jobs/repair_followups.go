// Package jobs contains the scheduled maintenance jobs of the practice server.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPAIR FOLLOW-UPS JOB
// ══════════════════════════════════════════════════════════════════════════════

// IDGenerator produces ids for the exercises the job creates.
type IDGenerator interface {
	GenerateID() string
}

// RepairFollowUpsJob creates the missing follow-up exercise for every
// recorded call that should have one. Calls stored as ending the auction
// are not scanned; unmarked ones are recognised and counted as terminal.
type RepairFollowUpsJob struct {
	store  practice.Store
	ids    IDGenerator
	now    func() time.Time
	logger *slog.Logger
	config RepairFollowUpsConfig

	lastRunStats atomic.Pointer[RepairFollowUpsStats]
}

// RepairFollowUpsConfig contains configuration for the repair job.
type RepairFollowUpsConfig struct {
	// MaxRepairs caps how many follow-ups one run creates. Zero means no cap.
	MaxRepairs int

	// Timeout is the maximum duration for one run.
	Timeout time.Duration
}

// DefaultRepairFollowUpsConfig returns sensible defaults.
func DefaultRepairFollowUpsConfig() RepairFollowUpsConfig {
	return RepairFollowUpsConfig{
		MaxRepairs: 500,
		Timeout:    2 * time.Minute,
	}
}

// RepairFollowUpsStats contains statistics from one run.
type RepairFollowUpsStats struct {
	StartedAt   time.Time
	Duration    time.Duration
	Scanned     int
	Repaired    int
	Terminal    int
	RaceSkipped int
}

// NewRepairFollowUpsJob creates the job. A nil now defaults to time.Now.
func NewRepairFollowUpsJob(store practice.Store, ids IDGenerator, now func() time.Time, logger *slog.Logger, config RepairFollowUpsConfig) *RepairFollowUpsJob {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RepairFollowUpsJob{
		store:  store,
		ids:    ids,
		now:    now,
		logger: logger.With("job", "repair_followups"),
		config: config,
	}
}

// Name returns the job name.
func (j *RepairFollowUpsJob) Name() string {
	return "repair_followups"
}

// Description returns a human-readable description.
func (j *RepairFollowUpsJob) Description() string {
	return "Creates follow-up exercises missing for recorded calls"
}

// LastRunStats returns the statistics of the most recent run, if any.
func (j *RepairFollowUpsJob) LastRunStats() *RepairFollowUpsStats {
	return j.lastRunStats.Load()
}

// Run executes the job.
func (j *RepairFollowUpsJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	stats := &RepairFollowUpsStats{StartedAt: j.now()}
	defer func() {
		stats.Duration = j.now().Sub(stats.StartedAt)
		j.lastRunStats.Store(stats)
	}()

	// The cap applies to repairs, not to the scan.
	orphans, err := j.store.ListBidsWithoutFollowUp(ctx, 0)
	if err != nil {
		return fmt.Errorf("list bids without follow-up: %w", err)
	}

	parents := make(map[string]*practice.Exercise)
	for _, bid := range orphans {
		if err := ctx.Err(); err != nil {
			return err
		}
		if j.config.MaxRepairs > 0 && stats.Repaired >= j.config.MaxRepairs {
			break
		}
		stats.Scanned++

		parent, ok := parents[bid.ExerciseID]
		if !ok {
			parent, err = j.store.GetExercise(ctx, bid.ExerciseID)
			if err != nil {
				return fmt.Errorf("load exercise %s: %w", bid.ExerciseID, err)
			}
			parents[bid.ExerciseID] = parent
		}

		repaired, err := j.repair(ctx, parent, bid)
		switch {
		case err == nil && repaired:
			stats.Repaired++
		case err == nil:
			stats.Terminal++
		case shared.IsAlreadyExists(err):
			// Another writer created it between the scan and the insert.
			stats.RaceSkipped++
		default:
			return fmt.Errorf("repair bid %s: %w", bid.ID, err)
		}
	}

	if stats.Repaired > 0 {
		j.logger.Info("follow-ups repaired",
			"repaired", stats.Repaired,
			"scanned", stats.Scanned,
		)
	}
	return nil
}

func (j *RepairFollowUpsJob) repair(ctx context.Context, parent *practice.Exercise, bid *practice.ExerciseBid) (bool, error) {
	child, err := parent.FollowUpFor(bid, j.ids.GenerateID(), j.now())
	if err != nil {
		return false, err
	}
	if child == nil {
		return false, nil
	}

	err = j.store.WithinTx(ctx, func(repo practice.Repository) error {
		return repo.SaveExercise(ctx, child)
	})
	if err != nil {
		return false, err
	}

	j.logger.Debug("follow-up created",
		"bid_id", bid.ID,
		"exercise_id", child.ID,
		"bids", child.Bids.String(),
	)
	return true, nil
}
