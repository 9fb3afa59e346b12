package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NEXT EXERCISE QUERY
// Picks the exercise a learner should see next. Deals the learner saw in
// their last few calls are held back, and exercises they already answered
// are skipped. When nothing qualifies a new deal is created.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultLookback is how many of a learner's recent calls are considered
// when holding back deals.
const DefaultLookback = 5

// NextExerciseQuery identifies the learner.
type NextExerciseQuery struct {
	LearnerID string
}

// Validate validates the query.
func (q NextExerciseQuery) Validate() error {
	if q.LearnerID == "" {
		return shared.NewDomainError("practice", "NextExercise", shared.ErrInvalidID, "learner_id is required")
	}
	return nil
}

// NextExerciseResult is the chosen exercise.
type NextExerciseResult struct {
	Exercise *practice.Exercise

	// Created is true when a new deal was dealt for this request.
	Created bool
}

// NextExerciseConfig tunes the handler.
type NextExerciseConfig struct {
	// Lookback defaults to DefaultLookback.
	Lookback int

	// Locker serialises selection per learner. Nil disables locking.
	Locker practice.Locker

	// Dealer produces fresh deals. Defaults to bridge.RandomDeal with a
	// securely seeded generator.
	Dealer func() bridge.Deal
}

// NextExerciseHandler handles the NextExerciseQuery.
type NextExerciseHandler struct {
	store    practice.Store
	ids      IDGenerator
	clock    Clock
	logger   *slog.Logger
	lookback int
	locker   practice.Locker
	dealer   func() bridge.Deal
}

// NewNextExerciseHandler creates a new NextExerciseHandler.
func NewNextExerciseHandler(store practice.Store, ids IDGenerator, clock Clock, logger *slog.Logger, cfg NextExerciseConfig) *NextExerciseHandler {
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.Dealer == nil {
		cfg.Dealer = func() bridge.Deal { return bridge.RandomDeal(bridge.NewRand()) }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NextExerciseHandler{
		store:    store,
		ids:      ids,
		clock:    clock,
		logger:   logger,
		lookback: cfg.Lookback,
		locker:   cfg.Locker,
		dealer:   cfg.Dealer,
	}
}

// Handle returns the oldest eligible exercise, or a new root exercise.
func (h *NextExerciseHandler) Handle(ctx context.Context, q NextExerciseQuery) (*NextExerciseResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("next_exercise: validation failed: %w", err)
	}

	recentDeals, err := h.recentDeals(ctx, q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("next_exercise: %w", err)
	}

	if h.locker != nil {
		unlock, err := h.locker.Lock(ctx, "next_exercise:"+q.LearnerID)
		if err != nil {
			return nil, fmt.Errorf("next_exercise: failed to lock learner: %w", err)
		}
		defer unlock()
	}

	candidates, err := h.store.FindExercises(ctx, practice.ExerciseFilter{
		ExcludeDealIDs: recentDeals,
		NotBidBy:       q.LearnerID,
		Limit:          1,
	})
	if err != nil {
		return nil, fmt.Errorf("next_exercise: failed to find exercises: %w", err)
	}
	if len(candidates) > 0 {
		return &NextExerciseResult{Exercise: candidates[0]}, nil
	}

	ex, err := h.dealFresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("next_exercise: %w", err)
	}
	h.logger.Info("dealt new board",
		"learner_id", q.LearnerID,
		"deal_id", ex.DealID,
		"exercise_id", ex.ID,
	)
	return &NextExerciseResult{Exercise: ex, Created: true}, nil
}

// recentDeals returns the distinct deals behind the learner's latest calls.
func (h *NextExerciseHandler) recentDeals(ctx context.Context, learnerID string) ([]string, error) {
	recent, err := h.store.ListRecentBidsByLearner(ctx, learnerID, h.lookback)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent bids: %w", err)
	}

	seen := make(map[string]bool, len(recent))
	deals := make([]string, 0, len(recent))
	for _, b := range recent {
		ex, err := h.store.GetExercise(ctx, b.ExerciseID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve exercise %s: %w", b.ExerciseID, err)
		}
		if !seen[ex.DealID] {
			seen[ex.DealID] = true
			deals = append(deals, ex.DealID)
		}
	}
	return deals, nil
}

// dealFresh stores a new deal and its root exercise together.
func (h *NextExerciseHandler) dealFresh(ctx context.Context) (*practice.Exercise, error) {
	now := h.clock.now()

	deal, err := practice.NewDeal(h.ids.GenerateID(), h.dealer(), now)
	if err != nil {
		return nil, fmt.Errorf("failed to build deal: %w", err)
	}
	root, err := practice.NewRootExercise(h.ids.GenerateID(), deal.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build exercise: %w", err)
	}

	err = h.store.WithinTx(ctx, func(repo practice.Repository) error {
		if err := repo.SaveDeal(ctx, deal); err != nil {
			return fmt.Errorf("failed to save deal: %w", err)
		}
		if err := repo.SaveExercise(ctx, root); err != nil {
			return fmt.Errorf("failed to save exercise: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}
