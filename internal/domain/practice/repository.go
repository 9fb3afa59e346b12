package practice

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the contract with the backing store.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// ExerciseFilter selects exercises. Zero-valued fields do not filter.
// Results are always ordered oldest first (created_at, then id).
type ExerciseFilter struct {
	// DealID keeps only exercises over this deal.
	DealID string

	// ExcludeDealIDs drops exercises over any of these deals.
	ExcludeDealIDs []string

	// NotBidBy drops exercises this learner has already bid on.
	NotBidBy string

	// Limit caps the number of results; 0 means no limit.
	Limit int
}

// BidTally summarises the bids recorded against one exercise.
type BidTally struct {
	ExerciseID   string
	Bids         int
	DistinctBids int
	CreatedAt    time.Time
}

// Repository is the persistence collaborator for the practice domain.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Deals
	// ─────────────────────────────────────────────────────────────────────────

	// SaveDeal stores a new deal.
	SaveDeal(ctx context.Context, deal *Deal) error

	// GetDeal returns shared.ErrDealNotFound if no deal has the id.
	GetDeal(ctx context.Context, id string) (*Deal, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Exercises
	// ─────────────────────────────────────────────────────────────────────────

	// SaveExercise stores a new exercise.
	SaveExercise(ctx context.Context, ex *Exercise) error

	// GetExercise returns shared.ErrExerciseNotFound if no exercise has the id.
	GetExercise(ctx context.Context, id string) (*Exercise, error)

	// FindExercises returns the exercises matching the filter, oldest first.
	FindExercises(ctx context.Context, filter ExerciseFilter) ([]*Exercise, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Exercise bids
	// ─────────────────────────────────────────────────────────────────────────

	// SaveExerciseBid stores a new call.
	SaveExerciseBid(ctx context.Context, bid *ExerciseBid) error

	// GetExerciseBid returns shared.ErrExerciseBidNotFound if no bid has the id.
	GetExerciseBid(ctx context.Context, id string) (*ExerciseBid, error)

	// ListBidsByExercise returns the calls made on an exercise, oldest first.
	ListBidsByExercise(ctx context.Context, exerciseID string) ([]*ExerciseBid, error)

	// ListRecentBidsByLearner returns a learner's most recent calls, newest
	// first, at most limit of them. Calls stored at the same instant are
	// ordered by insertion.
	ListRecentBidsByLearner(ctx context.Context, learnerID string, limit int) ([]*ExerciseBid, error)

	// ListBidsWithoutFollowUp returns calls that no exercise names as its
	// source, oldest first. Calls stored with EndsAuction set are skipped.
	ListBidsWithoutFollowUp(ctx context.Context, limit int) ([]*ExerciseBid, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Comments
	// ─────────────────────────────────────────────────────────────────────────

	// SaveComment stores a new comment.
	SaveComment(ctx context.Context, c *Comment) error

	// GetComment returns shared.ErrCommentNotFound if no comment has the id.
	GetComment(ctx context.Context, id string) (*Comment, error)

	// ListCommentsByExercise returns an exercise's comments, oldest first.
	ListCommentsByExercise(ctx context.Context, exerciseID string) ([]*Comment, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Review
	// ─────────────────────────────────────────────────────────────────────────

	// ListConflictingExercises returns exercises the learner has bid on where
	// more than one distinct call has been recorded, oldest first.
	ListConflictingExercises(ctx context.Context, learnerID string) ([]*Exercise, error)

	// ListBidTallies returns a tally for every exercise, oldest first.
	ListBidTallies(ctx context.Context) ([]BidTally, error)
}

// Store is a Repository that can run a unit of work atomically.
type Store interface {
	Repository

	// WithinTx runs fn against a transactional view of the store. Writes made
	// through that view are committed together when fn returns nil and
	// discarded otherwise.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}

// Locker serialises work per key across concurrent callers.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned func
	// releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
