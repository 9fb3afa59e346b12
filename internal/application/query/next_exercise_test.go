package query

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rychipman/bridge-practice/internal/application/command"
	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/memory"
)

var testNow = time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) GenerateID() string {
	return fmt.Sprintf("id-%04d", s.n.Add(1))
}

// tickingClock advances one second per call so records get distinct times.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	store  *memory.Store
	ids    *seqIDs
	clock  *tickingClock
	next   *NextExerciseHandler
	submit *command.SubmitBidHandler
}

func newFixture(t *testing.T, cfg NextExerciseConfig) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		ids:   &seqIDs{},
		clock: &tickingClock{t: testNow},
	}
	f.next = NewNextExerciseHandler(f.store, f.ids, f.clock.Now, nil, cfg)
	f.submit = command.NewSubmitBidHandler(f.store, nil, f.ids, f.clock.Now, nil)
	return f
}

func (f *fixture) nextFor(t *testing.T, learnerID string) *NextExerciseResult {
	t.Helper()
	res, err := f.next.Handle(context.Background(), NextExerciseQuery{LearnerID: learnerID})
	require.NoError(t, err)
	return res
}

func (f *fixture) bid(t *testing.T, exerciseID, learnerID, call string) *command.SubmitBidResult {
	t.Helper()
	res, err := f.submit.Handle(context.Background(), command.SubmitBidCommand{ExerciseID: exerciseID, LearnerID: learnerID, Bid: call})
	require.NoError(t, err)
	return res
}

func TestEndToEndAuction(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{})

	first := f.nextFor(t, "L")
	require.True(t, first.Created)
	e0 := first.Exercise
	assert.True(t, e0.IsRoot())
	assert.Equal(t, 0, e0.Bids.Len())

	r1 := f.bid(t, e0.ID, "L", "1NT")
	require.NotNil(t, r1.FollowUp)
	e1 := r1.FollowUp
	assert.Equal(t, "1NT", e1.Bids.String())

	r2 := f.bid(t, e1.ID, "L", "Pass")
	require.NotNil(t, r2.FollowUp)
	r3 := f.bid(t, r2.FollowUp.ID, "engine", "Pass")
	require.NotNil(t, r3.FollowUp)
	assert.Equal(t, "1NT,Pass,Pass", r3.FollowUp.Bids.String())

	r4 := f.bid(t, r3.FollowUp.ID, "engine", "Pass")
	assert.Nil(t, r4.FollowUp)

	final, err := r3.FollowUp.Bids.Append(bridge.Pass)
	require.NoError(t, err)
	assert.Equal(t, "1NT,Pass,Pass,Pass", final.String())
	assert.True(t, final.IsFinished())

	// the tree is exactly four deep
	all, err := f.store.FindExercises(context.Background(), practice.ExerciseFilter{DealID: e0.DealID})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestNextExerciseReusesPoolBeforeDealing(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{})

	alice := f.nextFor(t, "alice")
	require.True(t, alice.Created)

	// bob has no history, so alice's unbid root is offered to him
	bob := f.nextFor(t, "bob")
	assert.False(t, bob.Created)
	assert.Equal(t, alice.Exercise.ID, bob.Exercise.ID)
}

func TestNextExerciseHoldsBackRecentDeals(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{})

	res := f.nextFor(t, "alice")
	f.bid(t, res.Exercise.ID, "alice", "1C")

	// the follow-up over the same deal is unbid by alice but held back
	again := f.nextFor(t, "alice")
	assert.True(t, again.Created)
	assert.NotEqual(t, res.Exercise.DealID, again.Exercise.DealID)
}

func TestNextExercisePropertyOverManyRounds(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{})
	ctx := context.Background()
	calls := []string{"Pass", "1C", "1H", "2NT", "Pass", "3S"}

	for round := 0; round < 40; round++ {
		learnerID := []string{"ann", "ben", "cat"}[round%3]

		recent, err := f.store.ListRecentBidsByLearner(ctx, learnerID, DefaultLookback)
		require.NoError(t, err)
		held := map[string]bool{}
		for _, b := range recent {
			ex, err := f.store.GetExercise(ctx, b.ExerciseID)
			require.NoError(t, err)
			held[ex.DealID] = true
		}

		res := f.nextFor(t, learnerID)
		ex := res.Exercise
		assert.False(t, held[ex.DealID], "round %d: recently practiced deal offered", round)

		bids, err := f.store.ListBidsByExercise(ctx, ex.ID)
		require.NoError(t, err)
		for _, b := range bids {
			assert.NotEqual(t, learnerID, b.LearnerID, "round %d: exercise already answered", round)
		}

		call := bridge.Pass
		for _, c := range calls[round%len(calls):] {
			if b := bridge.MustBid(c); ex.Bids.IsValid(b) {
				call = b
				break
			}
		}
		f.bid(t, ex.ID, learnerID, call.String())
	}
}

func TestNextExerciseTieBreakOldestThenID(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{})
	ctx := context.Background()

	for _, id := range []string{"d-b", "d-a"} {
		d, err := practice.NewDeal(id, bridge.RandomDeal(bridge.NewRand()), testNow)
		require.NoError(t, err)
		require.NoError(t, f.store.SaveDeal(ctx, d))
		ex, err := practice.NewRootExercise("ex-"+id, id, testNow)
		require.NoError(t, err)
		require.NoError(t, f.store.SaveExercise(ctx, ex))
	}

	res := f.nextFor(t, "alice")
	assert.False(t, res.Created)
	assert.Equal(t, "ex-d-a", res.Exercise.ID)
}

func TestNextExerciseLockerPreventsDuplicateDeals(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{Locker: memory.NewLocker()})

	var wg sync.WaitGroup
	results := make([]*NextExerciseResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.next.Handle(context.Background(), NextExerciseQuery{LearnerID: "alice"})
			if assert.NoError(t, err) {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	created := 0
	for _, r := range results {
		require.NotNil(t, r)
		if r.Created {
			created++
		}
		assert.Equal(t, results[0].Exercise.ID, r.Exercise.ID)
	}
	assert.Equal(t, 1, created)
}

func TestNextExerciseCustomLookbackAndDealer(t *testing.T) {
	dealt := 0
	f := newFixture(t, NextExerciseConfig{
		Lookback: 1,
		Dealer: func() bridge.Deal {
			dealt++
			return bridge.RandomDeal(bridge.NewRand())
		},
	})

	first := f.nextFor(t, "alice")
	f.bid(t, first.Exercise.ID, "alice", "Pass")
	second := f.nextFor(t, "alice")
	f.bid(t, second.Exercise.ID, "alice", "Pass")

	// with a lookback of one, the first deal's follow-up is eligible again
	third := f.nextFor(t, "alice")
	assert.False(t, third.Created)
	assert.Equal(t, first.Exercise.DealID, third.Exercise.DealID)
	assert.Equal(t, 2, dealt)
}

func TestNextExerciseValidation(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{})
	_, err := f.next.Handle(context.Background(), NextExerciseQuery{})
	assert.True(t, shared.IsValidation(err))
}
