package command

import (
	"context"
	"fmt"

	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// AddCommentCommand attaches free text to an exercise.
type AddCommentCommand struct {
	ExerciseID string
	LearnerID  string
	Text       string
}

// Validate validates the command.
func (c AddCommentCommand) Validate() error {
	if c.ExerciseID == "" || c.LearnerID == "" {
		return shared.NewDomainError("practice", "AddComment", shared.ErrInvalidID, "exercise_id and learner_id are required")
	}
	return nil
}

// AddCommentHandler handles the AddCommentCommand.
type AddCommentHandler struct {
	repo     practice.Repository
	learners learner.Repository
	ids      IDGenerator
	clock    Clock

	events shared.EventPublisher
}

// NewAddCommentHandler creates a new AddCommentHandler. When learners is nil
// the learner id is not checked.
func NewAddCommentHandler(repo practice.Repository, learners learner.Repository, ids IDGenerator, clock Clock) *AddCommentHandler {
	return &AddCommentHandler{repo: repo, learners: learners, ids: ids, clock: clock}
}

// WithEvents publishes a CommentAddedEvent after every stored comment.
func (h *AddCommentHandler) WithEvents(events shared.EventPublisher) *AddCommentHandler {
	h.events = events
	return h
}

// Handle stores the comment after checking the exercise and learner exist.
func (h *AddCommentHandler) Handle(ctx context.Context, cmd AddCommentCommand) (*practice.Comment, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_comment: validation failed: %w", err)
	}

	if _, err := h.repo.GetExercise(ctx, cmd.ExerciseID); err != nil {
		return nil, fmt.Errorf("add_comment: failed to load exercise: %w", err)
	}
	if err := requireLearner(ctx, h.learners, cmd.LearnerID); err != nil {
		return nil, fmt.Errorf("add_comment: %w", err)
	}

	c, err := practice.NewComment(h.ids.GenerateID(), cmd.ExerciseID, cmd.LearnerID, cmd.Text, h.clock.now())
	if err != nil {
		return nil, fmt.Errorf("add_comment: %w", err)
	}

	if err := h.repo.SaveComment(ctx, c); err != nil {
		return nil, fmt.Errorf("add_comment: failed to save comment: %w", err)
	}

	publish(h.events, nil, shared.CommentAddedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventCommentAdded, c.ExerciseID, c.CreatedAt),
		CommentID:  c.ID,
		ExerciseID: c.ExerciseID,
		LearnerID:  c.LearnerID,
	})
	return c, nil
}
