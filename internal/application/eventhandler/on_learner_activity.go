// Package eventhandler contains the subscribers to domain events.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LEARNER ACTIVITY HANDLER
// Moves a learner's last-active stamp forward whenever they call or comment.
// ═══════════════════════════════════════════════════════════════════════════

// OnLearnerActivityHandler records learner activity from practice events.
type OnLearnerActivityHandler struct {
	learners learner.Repository
	logger   *slog.Logger
	timeout  time.Duration
}

// NewOnLearnerActivityHandler creates the handler. A zero timeout means 5s.
func NewOnLearnerActivityHandler(learners learner.Repository, logger *slog.Logger, timeout time.Duration) *OnLearnerActivityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OnLearnerActivityHandler{
		learners: learners,
		logger:   logger.With("handler", "on_learner_activity"),
		timeout:  timeout,
	}
}

// EventTypes lists the events the handler subscribes to.
func (h *OnLearnerActivityHandler) EventTypes() []shared.EventType {
	return []shared.EventType{shared.EventBidSubmitted, shared.EventCommentAdded}
}

// Handle implements shared.EventHandler.
func (h *OnLearnerActivityHandler) Handle(event shared.Event) error {
	var learnerID string
	switch e := event.(type) {
	case shared.BidSubmittedEvent:
		learnerID = e.LearnerID
	case shared.CommentAddedEvent:
		learnerID = e.LearnerID
	default:
		h.logger.Warn("unexpected event", "event_type", event.EventType())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	err := h.learners.TouchLastActive(ctx, learnerID, event.OccurredAt())
	if shared.IsNotFound(err) {
		// Learners are not required to exist to practise.
		h.logger.Debug("activity for unknown learner", "learner_id", learnerID)
		return nil
	}
	return err
}
