package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// DealCache is a read-through cache for deals. Deals never change, so
// entries are never invalidated.
type DealCache interface {
	GetDeal(ctx context.Context, id string) (deal *practice.Deal, found bool, err error)
	SetDeal(ctx context.Context, deal *practice.Deal) error
}

// GetExerciseQuery identifies the exercise.
type GetExerciseQuery struct {
	ExerciseID string
}

// ExerciseView is everything a client needs to present an exercise.
type ExerciseView struct {
	Exercise *practice.Exercise
	Deal     *practice.Deal
	Comments []*practice.Comment

	// NextSeat is the seat to call. Meaningless when Finished.
	NextSeat bridge.Seat
	Finished bool

	// Table is the auction rendered as a grid.
	Table string

	LegalCalls []bridge.Bid
}

// GetExerciseHandler handles the GetExerciseQuery.
type GetExerciseHandler struct {
	repo   practice.Repository
	cache  DealCache
	logger *slog.Logger
}

// NewGetExerciseHandler creates a new GetExerciseHandler. cache may be nil.
func NewGetExerciseHandler(repo practice.Repository, cache DealCache, logger *slog.Logger) *GetExerciseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetExerciseHandler{repo: repo, cache: cache, logger: logger}
}

// Handle assembles the view.
func (h *GetExerciseHandler) Handle(ctx context.Context, q GetExerciseQuery) (*ExerciseView, error) {
	if q.ExerciseID == "" {
		return nil, fmt.Errorf("get_exercise: %w",
			shared.NewDomainError("practice", "GetExercise", shared.ErrInvalidID, "exercise_id is required"))
	}

	ex, err := h.repo.GetExercise(ctx, q.ExerciseID)
	if err != nil {
		return nil, fmt.Errorf("get_exercise: %w", err)
	}

	deal, err := h.loadDeal(ctx, ex.DealID)
	if err != nil {
		return nil, fmt.Errorf("get_exercise: %w", err)
	}

	comments, err := h.repo.ListCommentsByExercise(ctx, ex.ID)
	if err != nil {
		return nil, fmt.Errorf("get_exercise: failed to list comments: %w", err)
	}

	return &ExerciseView{
		Exercise:   ex,
		Deal:       deal,
		Comments:   comments,
		NextSeat:   ex.Bids.NextSeat(deal.Deal.Dealer),
		Finished:   ex.IsFinished(),
		Table:      bridge.FormatTable(ex.Bids, deal.Deal.Dealer),
		LegalCalls: ex.Bids.LegalCalls(),
	}, nil
}

func (h *GetExerciseHandler) loadDeal(ctx context.Context, id string) (*practice.Deal, error) {
	if h.cache != nil {
		deal, found, err := h.cache.GetDeal(ctx, id)
		if err != nil {
			h.logger.Warn("deal cache read failed", "deal_id", id, "error", err)
		} else if found {
			return deal, nil
		}
	}

	deal, err := h.repo.GetDeal(ctx, id)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.SetDeal(ctx, deal); err != nil {
			h.logger.Warn("deal cache write failed", "deal_id", id, "error", err)
		}
	}
	return deal, nil
}
