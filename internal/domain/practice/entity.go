package practice

import (
	"errors"
	"strings"
	"time"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Deal is a stored bridge.Deal. It is created once and never changed.
type Deal struct {
	ID        string
	Deal      bridge.Deal
	CreatedAt time.Time
}

// Exercise is a deal paired with the calls made so far. Exercises are
// immutable; every new call produces a child exercise instead.
type Exercise struct {
	ID     string
	DealID string
	Bids   bridge.BidSequence

	// ParentID is nil for a root exercise.
	ParentID *string

	// SourceBidID is the ExerciseBid that produced this follow-up.
	SourceBidID *string

	CreatedAt time.Time
}

// ExerciseBid is one call a learner made against an exercise.
type ExerciseBid struct {
	ID         string
	ExerciseID string
	LearnerID  string
	Bid        bridge.Bid

	// EndsAuction is set when the call finished the auction, so no
	// follow-up exercise exists for it.
	EndsAuction bool

	CreatedAt time.Time
}

// Comment is free-text annotation on an exercise.
type Comment struct {
	ID         string
	ExerciseID string
	LearnerID  string
	Text       string
	CreatedAt  time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORIES
// ══════════════════════════════════════════════════════════════════════════════

var errIDRequired = errors.New("id is required")

// NewDeal wraps a validated bridge.Deal.
func NewDeal(id string, deal bridge.Deal, now time.Time) (*Deal, error) {
	if id == "" {
		return nil, shared.WrapError("practice", "NewDeal", shared.ErrInvalidID, "deal id is required", errIDRequired)
	}
	if err := deal.Validate(); err != nil {
		return nil, err
	}
	return &Deal{ID: id, Deal: deal, CreatedAt: now.UTC()}, nil
}

// NewRootExercise creates the exercise at the start of a deal's auction.
func NewRootExercise(id, dealID string, now time.Time) (*Exercise, error) {
	if id == "" || dealID == "" {
		return nil, shared.WrapError("practice", "NewRootExercise", shared.ErrInvalidID, "exercise and deal ids are required", errIDRequired)
	}
	return &Exercise{
		ID:        id,
		DealID:    dealID,
		Bids:      bridge.BidSequence{},
		CreatedAt: now.UTC(),
	}, nil
}

// NewComment validates and builds a comment.
func NewComment(id, exerciseID, learnerID, text string, now time.Time) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, shared.ErrEmptyComment
	}
	if id == "" || exerciseID == "" || learnerID == "" {
		return nil, shared.WrapError("practice", "NewComment", shared.ErrInvalidID, "comment ids are required", errIDRequired)
	}
	return &Comment{
		ID:         id,
		ExerciseID: exerciseID,
		LearnerID:  learnerID,
		Text:       text,
		CreatedAt:  now.UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// IsRoot reports whether the exercise starts an auction.
func (e *Exercise) IsRoot() bool {
	return e.ParentID == nil
}

// IsFinished reports whether no further call can be made on this exercise.
func (e *Exercise) IsFinished() bool {
	return e.Bids.IsFinished()
}

// IDs supplies the identifiers Continue needs for the records it builds.
type IDs struct {
	BidID      string
	FollowUpID string
}

// Continue applies the follow-up rule: the call is validated against the
// exercise's auction, an ExerciseBid is built, and a child exercise is
// built unless the call ends the auction. Nothing is persisted here.
func (e *Exercise) Continue(ids IDs, learnerID string, bid bridge.Bid, now time.Time) (*ExerciseBid, *Exercise, error) {
	next, err := e.Bids.Append(bid)
	if err != nil {
		return nil, nil, err
	}
	if ids.BidID == "" || learnerID == "" {
		return nil, nil, shared.WrapError("practice", "Continue", shared.ErrInvalidID, "bid and learner ids are required", errIDRequired)
	}

	now = now.UTC()
	exBid := &ExerciseBid{
		ID:         ids.BidID,
		ExerciseID: e.ID,
		LearnerID:  learnerID,
		Bid:        bid,
		CreatedAt:  now,
	}

	if next.IsFinished() {
		exBid.EndsAuction = true
		return exBid, nil, nil
	}
	if ids.FollowUpID == "" {
		return nil, nil, shared.WrapError("practice", "Continue", shared.ErrInvalidID, "follow-up id is required", errIDRequired)
	}

	parentID := e.ID
	sourceID := exBid.ID
	child := &Exercise{
		ID:          ids.FollowUpID,
		DealID:      e.DealID,
		Bids:        next,
		ParentID:    &parentID,
		SourceBidID: &sourceID,
		CreatedAt:   now,
	}
	return exBid, child, nil
}

// FollowUpFor rebuilds the child a recorded bid should have produced. It
// returns nil when the bid ended the auction.
func (e *Exercise) FollowUpFor(bid *ExerciseBid, followUpID string, now time.Time) (*Exercise, error) {
	_, child, err := e.Continue(IDs{BidID: bid.ID, FollowUpID: followUpID}, bid.LearnerID, bid.Bid, now)
	return child, err
}
