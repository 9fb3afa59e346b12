package learner

import (
	"context"
	"time"
)

// Repository stores learners. Implementations live in
// infrastructure/persistence.
type Repository interface {
	// Create stores a new learner.
	// Returns shared.ErrLearnerAlreadyExists if the email is taken.
	Create(ctx context.Context, l *Learner) error

	// GetByID returns shared.ErrLearnerNotFound if no learner has the id.
	GetByID(ctx context.Context, id string) (*Learner, error)

	// GetByEmail returns shared.ErrLearnerNotFound if no learner has the email.
	GetByEmail(ctx context.Context, email Email) (*Learner, error)

	// List returns learners ordered by creation time.
	List(ctx context.Context, opts ListOptions) ([]*Learner, error)

	// TouchLastActive moves the learner's last activity forward to at.
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}

// ListOptions controls pagination.
type ListOptions struct {
	Offset int
	Limit  int
}

// DefaultListOptions returns the first page of 50.
func DefaultListOptions() ListOptions {
	return ListOptions{Offset: 0, Limit: 50}
}

// WithOffset sets the offset.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithLimit sets the page size.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}
