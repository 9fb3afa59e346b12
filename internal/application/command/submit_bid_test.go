package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/memory"
)

func TestSubmitBidCreatesFollowUp(t *testing.T) {
	store := memory.NewStore()
	seedRoot(t, store, "")
	h := NewSubmitBidHandler(store, nil, &seqIDs{}, fixedClock, nil)

	res, err := h.Handle(context.Background(), SubmitBidCommand{ExerciseID: "root", LearnerID: "alice", Bid: "1NT"})
	require.NoError(t, err)

	assert.Equal(t, "root", res.ExerciseBid.ExerciseID)
	assert.Equal(t, "1NT", res.ExerciseBid.Bid.String())
	assert.Equal(t, testNow, res.ExerciseBid.CreatedAt)
	require.NotNil(t, res.FollowUp)
	assert.Equal(t, "1NT", res.FollowUp.Bids.String())
	assert.Equal(t, res.ExerciseBid.ID, *res.FollowUp.SourceBidID)

	stored, err := store.GetExercise(context.Background(), res.FollowUp.ID)
	require.NoError(t, err)
	assert.Equal(t, "root", *stored.ParentID)
}

func TestSubmitBidFinishingCall(t *testing.T) {
	store := memory.NewStore()
	seedRoot(t, store, "1C,Pass,Pass")
	h := NewSubmitBidHandler(store, nil, &seqIDs{}, fixedClock, nil)

	res, err := h.Handle(context.Background(), SubmitBidCommand{ExerciseID: "root", LearnerID: "alice", Bid: "Pass"})
	require.NoError(t, err)
	assert.Nil(t, res.FollowUp)

	bids, err := store.ListBidsByExercise(context.Background(), "root")
	require.NoError(t, err)
	assert.Len(t, bids, 1)
}

func TestSubmitBidRejections(t *testing.T) {
	store := memory.NewStore()
	seedRoot(t, store, "1NT")
	h := NewSubmitBidHandler(store, nil, &seqIDs{}, fixedClock, nil)
	ctx := context.Background()

	_, err := h.Handle(ctx, SubmitBidCommand{ExerciseID: "root", LearnerID: "alice", Bid: "1H"})
	require.Error(t, err)
	assert.True(t, shared.IsInvalidContinuation(err))
	var ice *bridge.InvalidContinuationError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, bridge.ReasonInsufficientBid, ice.Reason)

	_, err = h.Handle(ctx, SubmitBidCommand{ExerciseID: "root", LearnerID: "alice", Bid: "9Z"})
	assert.True(t, shared.IsFormat(err))

	_, err = h.Handle(ctx, SubmitBidCommand{ExerciseID: "missing", LearnerID: "alice", Bid: "Pass"})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(ctx, SubmitBidCommand{ExerciseID: "root", Bid: "Pass"})
	assert.True(t, shared.IsValidation(err))

	// nothing was written by the failures
	bids, err := store.ListBidsByExercise(ctx, "root")
	require.NoError(t, err)
	assert.Empty(t, bids)
}

func TestSubmitBidRetryCreatesNewRecords(t *testing.T) {
	store := memory.NewStore()
	seedRoot(t, store, "")
	h := NewSubmitBidHandler(store, nil, &seqIDs{}, fixedClock, nil)
	ctx := context.Background()

	first, err := h.Handle(ctx, SubmitBidCommand{ExerciseID: "root", LearnerID: "alice", Bid: "1C"})
	require.NoError(t, err)
	second, err := h.Handle(ctx, SubmitBidCommand{ExerciseID: "root", LearnerID: "alice", Bid: "1C"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ExerciseBid.ID, second.ExerciseBid.ID)
	assert.NotEqual(t, first.FollowUp.ID, second.FollowUp.ID)
	assert.True(t, first.FollowUp.Bids.Equal(second.FollowUp.Bids))
}

func TestSubmitBidTouchesLearner(t *testing.T) {
	store := memory.NewStore()
	seedRoot(t, store, "")
	ctx := context.Background()
	seedLearner(t, store, "alice")

	h := NewSubmitBidHandler(store, store, &seqIDs{}, fixedClock, nil)
	_, err := h.Handle(ctx, SubmitBidCommand{ExerciseID: "root", LearnerID: "alice", Bid: "Pass"})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, testNow, got.LastActive)
}

func TestSubmitBidRejectsUnknownLearner(t *testing.T) {
	store := memory.NewStore()
	seedRoot(t, store, "")
	ctx := context.Background()
	pub := &recordingPublisher{}

	h := NewSubmitBidHandler(store, store, &seqIDs{}, fixedClock, nil).WithEvents(pub)
	_, err := h.Handle(ctx, SubmitBidCommand{ExerciseID: "root", LearnerID: "ghost", Bid: "1NT"})
	assert.ErrorIs(t, err, shared.ErrLearnerNotFound)
	assert.True(t, shared.IsNotFound(err))

	bids, err := store.ListBidsByExercise(ctx, "root")
	require.NoError(t, err)
	assert.Empty(t, bids)
	children, err := store.FindExercises(ctx, practice.ExerciseFilter{})
	require.NoError(t, err)
	assert.Len(t, children, 1, "only the root exists")
	assert.Empty(t, pub.events)
}

type recordingPublisher struct{ events []shared.Event }

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.events = append(p.events, e)
	return nil
}

func TestSubmitBidPublishesEvent(t *testing.T) {
	store := memory.NewStore()
	seedRoot(t, store, "1C")
	seedLearner(t, store, "alice")
	pub := &recordingPublisher{}
	h := NewSubmitBidHandler(store, store, &seqIDs{}, fixedClock, nil).WithEvents(pub)

	res, err := h.Handle(context.Background(), SubmitBidCommand{ExerciseID: "root", LearnerID: "alice", Bid: "1H"})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	e, ok := pub.events[0].(shared.BidSubmittedEvent)
	require.True(t, ok)
	assert.Equal(t, shared.EventBidSubmitted, e.EventType())
	assert.Equal(t, "root", e.ExerciseID)
	assert.Equal(t, "alice", e.LearnerID)
	assert.Equal(t, "1H", e.Bid)
	assert.Equal(t, res.ExerciseBid.ID, e.ExerciseBidID)
	assert.Equal(t, res.FollowUp.ID, e.FollowUpID)
	assert.Equal(t, testNow, e.OccurredAt())

	_, err = h.Handle(context.Background(), SubmitBidCommand{ExerciseID: "root", LearnerID: "alice", Bid: "1C"})
	require.Error(t, err)
	assert.Len(t, pub.events, 1, "rejected calls publish nothing")
}

func TestAddCommentPublishesEvent(t *testing.T) {
	store := memory.NewStore()
	seedRoot(t, store, "")
	pub := &recordingPublisher{}
	seedLearner(t, store, "alice")
	h := NewAddCommentHandler(store, store, &seqIDs{}, fixedClock).WithEvents(pub)

	c, err := h.Handle(context.Background(), AddCommentCommand{ExerciseID: "root", LearnerID: "alice", Text: "weak NT?"})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	e := pub.events[0].(shared.CommentAddedEvent)
	assert.Equal(t, c.ID, e.CommentID)
	assert.Equal(t, "root", e.AggregateID())
}
