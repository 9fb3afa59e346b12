// Package command contains write operations (CQRS - Commands).
// Commands change the state of the system: recording calls, adding
// comments, registering learners and opening sessions.
package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// IDGenerator produces unique identifiers for new records.
type IDGenerator interface {
	// GenerateID generates a new unique ID.
	GenerateID() string
}

// Clock returns the current time. Handlers default to time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// requireLearner returns shared.ErrLearnerNotFound unless the learner
// exists. A nil repository skips the check.
func requireLearner(ctx context.Context, learners learner.Repository, id string) error {
	if learners == nil {
		return nil
	}
	if _, err := learners.GetByID(ctx, id); err != nil {
		return err
	}
	return nil
}

// publish hands e to the bus if one is configured. The command has already
// committed, so a publish failure is only logged.
func publish(events shared.EventPublisher, logger *slog.Logger, e shared.Event) {
	if events == nil {
		return
	}
	if err := events.Publish(e); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("failed to publish event",
			"event_type", e.EventType(),
			"aggregate_id", e.AggregateID(),
			"error", err,
		)
	}
}
