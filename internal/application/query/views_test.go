package query

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rychipman/bridge-practice/internal/application/command"
	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

type mapDealCache struct {
	mu    sync.Mutex
	deals map[string]*practice.Deal
	hits  int
	fail  bool
}

func (c *mapDealCache) GetDeal(_ context.Context, id string) (*practice.Deal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, false, errors.New("cache down")
	}
	d, ok := c.deals[id]
	if ok {
		c.hits++
	}
	return d, ok, nil
}

func (c *mapDealCache) SetDeal(_ context.Context, d *practice.Deal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("cache down")
	}
	c.deals[d.ID] = d
	return nil
}

func TestGetExerciseView(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{})
	ctx := context.Background()

	root := f.nextFor(t, "alice").Exercise
	child := f.bid(t, root.ID, "alice", "1NT").FollowUp

	comments := command.NewAddCommentHandler(f.store, nil, f.ids, f.clock.Now)
	_, err := comments.Handle(ctx, command.AddCommentCommand{ExerciseID: child.ID, LearnerID: "alice", Text: "stayman?"})
	require.NoError(t, err)

	cache := &mapDealCache{deals: map[string]*practice.Deal{}}
	h := NewGetExerciseHandler(f.store, cache, nil)

	view, err := h.Handle(ctx, GetExerciseQuery{ExerciseID: child.ID})
	require.NoError(t, err)
	assert.Equal(t, child.ID, view.Exercise.ID)
	assert.Equal(t, root.DealID, view.Deal.ID)
	require.Len(t, view.Comments, 1)
	assert.Equal(t, "stayman?", view.Comments[0].Text)
	assert.Equal(t, bridge.East, view.NextSeat)
	assert.False(t, view.Finished)
	assert.Contains(t, view.Table, "1NT")
	assert.NotEmpty(t, view.LegalCalls)
	assert.Equal(t, 0, cache.hits)

	_, err = h.Handle(ctx, GetExerciseQuery{ExerciseID: child.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	_, err = h.Handle(ctx, GetExerciseQuery{ExerciseID: "missing"})
	assert.ErrorIs(t, err, shared.ErrExerciseNotFound)
}

func TestGetExerciseSurvivesCacheFailure(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{})
	root := f.nextFor(t, "alice").Exercise

	h := NewGetExerciseHandler(f.store, &mapDealCache{fail: true}, nil)
	view, err := h.Handle(context.Background(), GetExerciseQuery{ExerciseID: root.ID})
	require.NoError(t, err)
	assert.Equal(t, root.DealID, view.Deal.ID)
}

func TestExerciseBidQueries(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{})
	ctx := context.Background()

	root := f.nextFor(t, "alice").Exercise
	first := f.bid(t, root.ID, "alice", "1C").ExerciseBid
	f.bid(t, root.ID, "bob", "1D")

	got, err := NewGetExerciseBidHandler(f.store).Handle(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "1C", got.Bid.String())

	list, err := NewListExerciseBidsHandler(f.store).Handle(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].LearnerID)

	_, err = NewListExerciseBidsHandler(f.store).Handle(ctx, "missing")
	assert.True(t, shared.IsNotFound(err))

	_, err = NewGetExerciseBidHandler(f.store).Handle(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrExerciseBidNotFound)
}

func TestReviewAndConflicts(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{})
	ctx := context.Background()

	root := f.nextFor(t, "alice").Exercise

	conflicts := NewConflictingExerciseHandler(f.store)
	_, err := conflicts.Handle(ctx, "alice")
	assert.ErrorIs(t, err, shared.ErrNoConflicts)
	assert.True(t, shared.IsNotFound(err))

	f.bid(t, root.ID, "alice", "1S")
	f.bid(t, root.ID, "bob", "Pass")

	ex, err := conflicts.Handle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, root.ID, ex.ID)

	summary, err := NewReviewExercisesHandler(f.store).Handle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{root.ID}, summary.Rebid)
	assert.Equal(t, []string{root.ID}, summary.Inconsistent)
	assert.Len(t, summary.Unbid, 2) // the two follow-ups
	assert.Empty(t, summary.Single)
}

func TestLearnerQueries(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{})
	ctx := context.Background()

	register := command.NewRegisterLearnerHandler(f.store, f.ids, f.clock.Now, bcrypt.MinCost)
	a, err := register.Handle(ctx, command.RegisterLearnerCommand{Email: "a@x.io", Password: "password-a"})
	require.NoError(t, err)
	_, err = register.Handle(ctx, command.RegisterLearnerCommand{Email: "b@x.io", Password: "password-b"})
	require.NoError(t, err)

	list, err := NewListLearnersHandler(f.store).Handle(ctx, learner.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a@x.io", list[0].Email)

	page, err := NewListLearnersHandler(f.store).Handle(ctx, learner.ListOptions{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b@x.io", page[0].Email)

	one, err := NewGetLearnerHandler(f.store).Handle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", one.Email)

	_, err = NewGetLearnerHandler(f.store).Handle(ctx, "ghost")
	assert.ErrorIs(t, err, shared.ErrLearnerNotFound)
}

func TestRecordAccessors(t *testing.T) {
	f := newFixture(t, NextExerciseConfig{})
	ctx := context.Background()
	root := f.nextFor(t, "alice").Exercise

	d, err := NewGetDealHandler(f.store, nil).Handle(ctx, root.DealID)
	require.NoError(t, err)
	assert.NoError(t, d.Deal.Validate())

	_, err = NewGetDealHandler(f.store, nil).Handle(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrDealNotFound)

	c, err := command.NewAddCommentHandler(f.store, nil, f.ids, f.clock.Now).Handle(ctx, command.AddCommentCommand{ExerciseID: root.ID, LearnerID: "alice", Text: "note"})
	require.NoError(t, err)

	got, err := NewGetCommentHandler(f.store).Handle(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "note", got.Text)

	_, err = NewGetCommentHandler(f.store).Handle(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrCommentNotFound)
}
