package query

import (
	"context"
	"fmt"

	"github.com/rychipman/bridge-practice/internal/domain/practice"
)

// GetExerciseBidHandler returns one recorded call.
type GetExerciseBidHandler struct {
	repo practice.Repository
}

// NewGetExerciseBidHandler creates a new GetExerciseBidHandler.
func NewGetExerciseBidHandler(repo practice.Repository) *GetExerciseBidHandler {
	return &GetExerciseBidHandler{repo: repo}
}

// Handle looks the call up by id.
func (h *GetExerciseBidHandler) Handle(ctx context.Context, bidID string) (*practice.ExerciseBid, error) {
	b, err := h.repo.GetExerciseBid(ctx, bidID)
	if err != nil {
		return nil, fmt.Errorf("get_exercise_bid: %w", err)
	}
	return b, nil
}

// ListExerciseBidsHandler returns every call made on an exercise.
type ListExerciseBidsHandler struct {
	repo practice.Repository
}

// NewListExerciseBidsHandler creates a new ListExerciseBidsHandler.
func NewListExerciseBidsHandler(repo practice.Repository) *ListExerciseBidsHandler {
	return &ListExerciseBidsHandler{repo: repo}
}

// Handle lists the calls oldest first. An unknown exercise is NotFound.
func (h *ListExerciseBidsHandler) Handle(ctx context.Context, exerciseID string) ([]*practice.ExerciseBid, error) {
	if _, err := h.repo.GetExercise(ctx, exerciseID); err != nil {
		return nil, fmt.Errorf("list_exercise_bids: %w", err)
	}
	bids, err := h.repo.ListBidsByExercise(ctx, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("list_exercise_bids: %w", err)
	}
	return bids, nil
}
