package learner

import (
	"net/mail"
	"strings"
	"time"

	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Email is a normalised (trimmed, lower-cased) email address.
type Email string

// ParseEmail normalises and validates an address.
func ParseEmail(s string) (Email, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || len(s) > 254 {
		return "", shared.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", shared.ErrInvalidEmail
	}
	return Email(s), nil
}

// String returns the address.
func (e Email) String() string {
	return string(e)
}

// MinPasswordLength is the shortest password RegisterLearner accepts.
const MinPasswordLength = 8

// ValidatePassword checks the plain-text password before hashing.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return shared.ErrWeakPassword
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: LEARNER
// ══════════════════════════════════════════════════════════════════════════════

// Learner is a registered user who practices bidding.
type Learner struct {
	ID    string
	Email Email

	// PasswordHash is a bcrypt hash. It never leaves the service.
	PasswordHash []byte

	CreatedAt  time.Time
	LastActive time.Time
}

// NewLearnerParams holds what is needed to create a learner.
type NewLearnerParams struct {
	ID           string
	Email        Email
	PasswordHash []byte
	Now          time.Time
}

// NewLearner builds a learner from already validated parts.
func NewLearner(params NewLearnerParams) (*Learner, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("learner", "NewLearner", shared.ErrInvalidID, "learner id is required")
	}
	if params.Email == "" {
		return nil, shared.ErrInvalidEmail
	}
	if len(params.PasswordHash) == 0 {
		return nil, shared.NewDomainError("learner", "NewLearner", shared.ErrEmptyValue, "password hash is required")
	}

	now := params.Now.UTC()
	return &Learner{
		ID:           params.ID,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		CreatedAt:    now,
		LastActive:   now,
	}, nil
}

// Touch records activity at the given time. Earlier times are ignored.
func (l *Learner) Touch(at time.Time) {
	at = at.UTC()
	if at.After(l.LastActive) {
		l.LastActive = at
	}
}
