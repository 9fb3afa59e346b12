package query

import (
	"context"
	"fmt"

	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ReviewExercisesHandler buckets every exercise by how often it was answered.
type ReviewExercisesHandler struct {
	repo practice.Repository
}

// NewReviewExercisesHandler creates a new ReviewExercisesHandler.
func NewReviewExercisesHandler(repo practice.Repository) *ReviewExercisesHandler {
	return &ReviewExercisesHandler{repo: repo}
}

// Handle returns the summary.
func (h *ReviewExercisesHandler) Handle(ctx context.Context) (practice.ReviewSummary, error) {
	tallies, err := h.repo.ListBidTallies(ctx)
	if err != nil {
		return practice.ReviewSummary{}, fmt.Errorf("review_exercises: %w", err)
	}
	return practice.Summarise(tallies), nil
}

// ConflictingExerciseHandler finds an exercise the learner answered where
// the recorded calls disagree.
type ConflictingExerciseHandler struct {
	repo practice.Repository
}

// NewConflictingExerciseHandler creates a new ConflictingExerciseHandler.
func NewConflictingExerciseHandler(repo practice.Repository) *ConflictingExerciseHandler {
	return &ConflictingExerciseHandler{repo: repo}
}

// Handle returns the oldest conflicting exercise, or shared.ErrNoConflicts.
func (h *ConflictingExerciseHandler) Handle(ctx context.Context, learnerID string) (*practice.Exercise, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("conflicting_exercise: %w",
			shared.NewDomainError("practice", "ConflictingExercise", shared.ErrInvalidID, "learner_id is required"))
	}

	exercises, err := h.repo.ListConflictingExercises(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("conflicting_exercise: %w", err)
	}
	if len(exercises) == 0 {
		return nil, fmt.Errorf("conflicting_exercise: %w", shared.ErrNoConflicts)
	}
	return exercises[0], nil
}
