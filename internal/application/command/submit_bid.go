package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT BID COMMAND
// Records a learner's call on an exercise and grows the exercise tree.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitBidCommand contains the call a learner made.
type SubmitBidCommand struct {
	ExerciseID string
	LearnerID  string

	// Bid is the call as text, e.g. "1NT", "Pass", "Dbl".
	Bid string
}

// Validate validates the command.
func (c SubmitBidCommand) Validate() error {
	if c.ExerciseID == "" {
		return shared.NewDomainError("practice", "SubmitBid", shared.ErrInvalidID, "exercise_id is required")
	}
	if c.LearnerID == "" {
		return shared.NewDomainError("practice", "SubmitBid", shared.ErrInvalidID, "learner_id is required")
	}
	if strings.TrimSpace(c.Bid) == "" {
		return shared.NewDomainError("practice", "SubmitBid", shared.ErrEmptyValue, "bid is required")
	}
	return nil
}

// SubmitBidResult contains the stored call and, unless the call ended the
// auction, the follow-up exercise it produced.
type SubmitBidResult struct {
	ExerciseBid *practice.ExerciseBid
	FollowUp    *practice.Exercise
}

// SubmitBidHandler handles the SubmitBidCommand.
type SubmitBidHandler struct {
	store    practice.Store
	learners learner.Repository
	ids      IDGenerator
	clock    Clock
	logger   *slog.Logger
	events   shared.EventPublisher
}

// NewSubmitBidHandler creates a new SubmitBidHandler. learners may be nil, in
// which case the learner id is not checked and activity is not recorded.
// Once WithEvents is set the activity update is left to the event
// subscribers.
func NewSubmitBidHandler(store practice.Store, learners learner.Repository, ids IDGenerator, clock Clock, logger *slog.Logger) *SubmitBidHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmitBidHandler{
		store:    store,
		learners: learners,
		ids:      ids,
		clock:    clock,
		logger:   logger,
	}
}

// WithEvents publishes a BidSubmittedEvent after every stored call.
func (h *SubmitBidHandler) WithEvents(events shared.EventPublisher) *SubmitBidHandler {
	h.events = events
	return h
}

// Handle validates the call against the exercise's auction and stores the
// call and its follow-up together.
func (h *SubmitBidHandler) Handle(ctx context.Context, cmd SubmitBidCommand) (*SubmitBidResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("submit_bid: validation failed: %w", err)
	}

	bid, err := bridge.ParseBid(strings.TrimSpace(cmd.Bid))
	if err != nil {
		return nil, fmt.Errorf("submit_bid: %w", err)
	}

	if err := requireLearner(ctx, h.learners, cmd.LearnerID); err != nil {
		return nil, fmt.Errorf("submit_bid: %w", err)
	}

	now := h.clock.now()
	result := &SubmitBidResult{}

	err = h.store.WithinTx(ctx, func(repo practice.Repository) error {
		ex, err := repo.GetExercise(ctx, cmd.ExerciseID)
		if err != nil {
			return fmt.Errorf("failed to load exercise: %w", err)
		}

		ids := practice.IDs{BidID: h.ids.GenerateID(), FollowUpID: h.ids.GenerateID()}
		exBid, child, err := ex.Continue(ids, cmd.LearnerID, bid, now)
		if err != nil {
			return err
		}

		if err := repo.SaveExerciseBid(ctx, exBid); err != nil {
			return fmt.Errorf("failed to save bid: %w", err)
		}
		if child != nil {
			if err := repo.SaveExercise(ctx, child); err != nil {
				return fmt.Errorf("failed to save follow-up: %w", err)
			}
		}

		result.ExerciseBid = exBid
		result.FollowUp = child
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit_bid: %w", err)
	}

	if h.events != nil {
		e := shared.BidSubmittedEvent{
			BaseEvent:     shared.NewBaseEvent(shared.EventBidSubmitted, result.ExerciseBid.ExerciseID, now),
			ExerciseBidID: result.ExerciseBid.ID,
			ExerciseID:    result.ExerciseBid.ExerciseID,
			LearnerID:     cmd.LearnerID,
			Bid:           result.ExerciseBid.Bid.String(),
		}
		if result.FollowUp != nil {
			e.FollowUpID = result.FollowUp.ID
		}
		publish(h.events, h.logger, e)
	} else if h.learners != nil {
		if err := h.learners.TouchLastActive(ctx, cmd.LearnerID, now); err != nil {
			h.logger.Warn("failed to record learner activity",
				"learner_id", cmd.LearnerID,
				"error", err,
			)
		}
	}

	return result, nil
}
