package command

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// SessionIssuer mints session tokens for authenticated learners.
type SessionIssuer interface {
	Issue(learnerID string, now time.Time) (token string, expiresAt time.Time, err error)
}

// LoginLearnerCommand contains the credentials to check.
type LoginLearnerCommand struct {
	Email    string
	Password string
}

// LoginLearnerResult carries the session token.
type LoginLearnerResult struct {
	LearnerID string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// LoginLearnerHandler handles the LoginLearnerCommand.
type LoginLearnerHandler struct {
	repo     learner.Repository
	sessions SessionIssuer
	clock    Clock
}

// NewLoginLearnerHandler creates a new LoginLearnerHandler.
func NewLoginLearnerHandler(repo learner.Repository, sessions SessionIssuer, clock Clock) *LoginLearnerHandler {
	return &LoginLearnerHandler{repo: repo, sessions: sessions, clock: clock}
}

// Handle checks the password and issues a session. An unknown email and a
// wrong password both yield shared.ErrInvalidCredentials.
func (h *LoginLearnerHandler) Handle(ctx context.Context, cmd LoginLearnerCommand) (*LoginLearnerResult, error) {
	email, err := learner.ParseEmail(cmd.Email)
	if err != nil {
		return nil, fmt.Errorf("login_learner: %w", shared.ErrInvalidCredentials)
	}

	l, err := h.repo.GetByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, fmt.Errorf("login_learner: %w", shared.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("login_learner: failed to load learner: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(l.PasswordHash, []byte(cmd.Password)); err != nil {
		return nil, fmt.Errorf("login_learner: %w", shared.ErrInvalidCredentials)
	}

	now := h.clock.now()
	token, expiresAt, err := h.sessions.Issue(l.ID, now)
	if err != nil {
		return nil, fmt.Errorf("login_learner: failed to issue session: %w", err)
	}

	if err := h.repo.TouchLastActive(ctx, l.ID, now); err != nil {
		return nil, fmt.Errorf("login_learner: failed to record activity: %w", err)
	}

	return &LoginLearnerResult{
		LearnerID: l.ID,
		Email:     l.Email.String(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
