package command

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER LEARNER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RegisterLearnerCommand contains the credentials for a new learner.
type RegisterLearnerCommand struct {
	Email    string
	Password string
}

// RegisterLearnerHandler handles the RegisterLearnerCommand.
type RegisterLearnerHandler struct {
	repo       learner.Repository
	ids        IDGenerator
	clock      Clock
	bcryptCost int

	events shared.EventPublisher
}

// NewRegisterLearnerHandler creates a new RegisterLearnerHandler. A zero
// bcryptCost selects bcrypt.DefaultCost.
func NewRegisterLearnerHandler(repo learner.Repository, ids IDGenerator, clock Clock, bcryptCost int) *RegisterLearnerHandler {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &RegisterLearnerHandler{
		repo:       repo,
		ids:        ids,
		clock:      clock,
		bcryptCost: bcryptCost,
	}
}

// WithEvents publishes a LearnerRegisteredEvent for every new learner.
func (h *RegisterLearnerHandler) WithEvents(events shared.EventPublisher) *RegisterLearnerHandler {
	h.events = events
	return h
}

// Handle validates the credentials, hashes the password and stores the
// learner. A taken email yields shared.ErrLearnerAlreadyExists.
func (h *RegisterLearnerHandler) Handle(ctx context.Context, cmd RegisterLearnerCommand) (*learner.Learner, error) {
	email, err := learner.ParseEmail(cmd.Email)
	if err != nil {
		return nil, fmt.Errorf("register_learner: %w", err)
	}
	if err := learner.ValidatePassword(cmd.Password); err != nil {
		return nil, fmt.Errorf("register_learner: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), h.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("register_learner: failed to hash password: %w", err)
	}

	l, err := learner.NewLearner(learner.NewLearnerParams{
		ID:           h.ids.GenerateID(),
		Email:        email,
		PasswordHash: hash,
		Now:          h.clock.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("register_learner: %w", err)
	}

	if err := h.repo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("register_learner: failed to create learner: %w", err)
	}

	publish(h.events, nil, shared.NewLearnerRegisteredEvent(l.ID, l.Email.String(), l.CreatedAt))
	return l, nil
}
