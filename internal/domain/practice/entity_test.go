package practice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func exerciseWith(t *testing.T, bids string) *Exercise {
	t.Helper()
	ex, err := NewRootExercise("ex-1", "deal-1", testNow)
	require.NoError(t, err)
	ex.Bids = bridge.MustBidSequence(bids)
	return ex
}

func TestNewDeal(t *testing.T) {
	deal := bridge.RandomDeal(bridge.NewRand())

	d, err := NewDeal("deal-1", deal, testNow)
	require.NoError(t, err)
	assert.Equal(t, "deal-1", d.ID)
	assert.Equal(t, testNow, d.CreatedAt)

	_, err = NewDeal("", deal, testNow)
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestNewRootExercise(t *testing.T) {
	ex, err := NewRootExercise("ex-1", "deal-1", testNow)
	require.NoError(t, err)

	assert.True(t, ex.IsRoot())
	assert.False(t, ex.IsFinished())
	assert.Equal(t, 0, ex.Bids.Len())
	assert.Nil(t, ex.SourceBidID)

	_, err = NewRootExercise("ex-1", "", testNow)
	assert.True(t, shared.IsValidation(err))
}

func TestNewComment(t *testing.T) {
	c, err := NewComment("c-1", "ex-1", "learner-1", "  weak two?  ", testNow)
	require.NoError(t, err)
	assert.Equal(t, "weak two?", c.Text)

	_, err = NewComment("c-2", "ex-1", "learner-1", "   ", testNow)
	assert.ErrorIs(t, err, shared.ErrEmptyComment)
	assert.True(t, shared.IsValidation(err))
}

func TestContinueBuildsFollowUp(t *testing.T) {
	ex := exerciseWith(t, "1NT,Pass")

	bid, child, err := ex.Continue(IDs{BidID: "bid-1", FollowUpID: "ex-2"}, "learner-1", bridge.MustBid("2C"), testNow)
	require.NoError(t, err)

	assert.Equal(t, "ex-1", bid.ExerciseID)
	assert.Equal(t, "learner-1", bid.LearnerID)
	assert.Equal(t, "2C", bid.Bid.String())
	assert.False(t, bid.EndsAuction)

	require.NotNil(t, child)
	assert.Equal(t, "ex-2", child.ID)
	assert.Equal(t, "deal-1", child.DealID)
	assert.Equal(t, "1NT,Pass,2C", child.Bids.String())
	require.NotNil(t, child.ParentID)
	assert.Equal(t, "ex-1", *child.ParentID)
	require.NotNil(t, child.SourceBidID)
	assert.Equal(t, "bid-1", *child.SourceBidID)
	assert.False(t, child.IsRoot())

	// the parent is untouched
	assert.Equal(t, "1NT,Pass", ex.Bids.String())
}

func TestContinueFinishingCallHasNoFollowUp(t *testing.T) {
	tests := []struct {
		name string
		bids string
		call string
	}{
		{"three passes after a bid", "1C,Pass,Pass", "Pass"},
		{"passed out", "Pass,Pass,Pass", "Pass"},
		{"passes after a double", "1S,Dbl,Pass,Pass", "Pass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := exerciseWith(t, tt.bids)
			bid, child, err := ex.Continue(IDs{BidID: "bid-1"}, "learner-1", bridge.MustBid(tt.call), testNow)
			require.NoError(t, err)
			require.NotNil(t, bid)
			assert.True(t, bid.EndsAuction)
			assert.Nil(t, child)
		})
	}
}

func TestContinueRejectsIllegalCall(t *testing.T) {
	ex := exerciseWith(t, "1NT")

	_, _, err := ex.Continue(IDs{BidID: "bid-1", FollowUpID: "ex-2"}, "learner-1", bridge.MustBid("1S"), testNow)
	require.Error(t, err)
	assert.True(t, shared.IsInvalidContinuation(err))

	var ice *bridge.InvalidContinuationError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, bridge.ReasonInsufficientBid, ice.Reason)
}

func TestContinueOnFinishedExercise(t *testing.T) {
	ex := exerciseWith(t, "Pass,Pass,Pass,Pass")
	assert.True(t, ex.IsFinished())

	_, _, err := ex.Continue(IDs{BidID: "bid-1", FollowUpID: "ex-2"}, "learner-1", bridge.Pass, testNow)
	var ice *bridge.InvalidContinuationError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, bridge.ReasonAuctionFinished, ice.Reason)
}

func TestContinueRequiresIDs(t *testing.T) {
	ex := exerciseWith(t, "")

	_, _, err := ex.Continue(IDs{BidID: "bid-1"}, "learner-1", bridge.MustBid("1C"), testNow)
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, _, err = ex.Continue(IDs{FollowUpID: "ex-2"}, "learner-1", bridge.MustBid("1C"), testNow)
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestFollowUpFor(t *testing.T) {
	ex := exerciseWith(t, "1H")
	recorded := &ExerciseBid{ID: "bid-9", ExerciseID: ex.ID, LearnerID: "learner-1", Bid: bridge.Double, CreatedAt: testNow}

	child, err := ex.FollowUpFor(recorded, "ex-9", testNow.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, child)
	assert.Equal(t, "1H,Dbl", child.Bids.String())
	assert.Equal(t, "bid-9", *child.SourceBidID)

	ended := exerciseWith(t, "1H,Pass,Pass")
	child, err = ended.FollowUpFor(&ExerciseBid{ID: "bid-10", LearnerID: "learner-1", Bid: bridge.Pass}, "ex-10", testNow)
	require.NoError(t, err)
	assert.Nil(t, child)
}
