package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "practice.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedExercise(t *testing.T, s *Store, dealID, exID string, at time.Time) *practice.Exercise {
	t.Helper()
	ctx := context.Background()
	if _, err := s.GetDeal(ctx, dealID); err != nil {
		d, err := practice.NewDeal(dealID, bridge.RandomDeal(bridge.NewRand()), at)
		require.NoError(t, err)
		require.NoError(t, s.SaveDeal(ctx, d))
	}
	ex, err := practice.NewRootExercise(exID, dealID, at)
	require.NoError(t, err)
	require.NoError(t, s.SaveExercise(ctx, ex))
	return ex
}

// seedLearner creates the learner unless it already exists.
func seedLearner(t *testing.T, s *Store, id string) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.GetByID(ctx, id); err == nil {
		return
	}
	l, err := learner.NewLearner(learner.NewLearnerParams{
		ID: id, Email: learner.Email(id + "@example.com"), PasswordHash: []byte("x"), Now: t0,
	})
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, l))
}

func saveBid(t *testing.T, s *Store, id, exID, learnerID, call string, at time.Time) {
	t.Helper()
	seedLearner(t, s, learnerID)
	require.NoError(t, s.SaveExerciseBid(context.Background(), &practice.ExerciseBid{
		ID: id, ExerciseID: exID, LearnerID: learnerID, Bid: bridge.MustBid(call), CreatedAt: at,
	}))
}

func ids(exs []*practice.Exercise) []string {
	out := make([]string, 0, len(exs))
	for _, ex := range exs {
		out = append(out, ex.ID)
	}
	return out
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), " ")
	assert.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "practice.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	seedExercise(t, s, "d1", "e1", t0)
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	ex, err := s.GetExercise(context.Background(), "e1")
	require.NoError(t, err)
	assert.True(t, ex.IsRoot())
	assert.Equal(t, t0, ex.CreatedAt)
}

func TestDealRoundTrip(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	d, err := practice.NewDeal("d1", bridge.RandomDeal(bridge.NewRand()), t0)
	require.NoError(t, err)
	require.NoError(t, s.SaveDeal(ctx, d))
	assert.True(t, shared.IsAlreadyExists(s.SaveDeal(ctx, d)))

	got, err := s.GetDeal(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, d.Deal.Dealer, got.Deal.Dealer)
	assert.Equal(t, d.Deal.Vulnerable, got.Deal.Vulnerable)
	for _, seat := range []bridge.Seat{bridge.North, bridge.East, bridge.South, bridge.West} {
		assert.True(t, d.Deal.Hand(seat).Equal(got.Deal.Hand(seat)), seat.String())
	}
}

func TestStoreNotFound(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	_, err := s.GetDeal(ctx, "nope")
	assert.ErrorIs(t, err, shared.ErrDealNotFound)
	_, err = s.GetExercise(ctx, "nope")
	assert.ErrorIs(t, err, shared.ErrExerciseNotFound)
	_, err = s.GetExerciseBid(ctx, "nope")
	assert.ErrorIs(t, err, shared.ErrExerciseBidNotFound)
	_, err = s.GetComment(ctx, "nope")
	assert.ErrorIs(t, err, shared.ErrCommentNotFound)
	_, err = s.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, shared.ErrLearnerNotFound)

	ex, err := practice.NewRootExercise("e1", "ghost-deal", t0)
	require.NoError(t, err)
	assert.ErrorIs(t, s.SaveExercise(ctx, ex), shared.ErrDealNotFound)
}

func TestFindExercisesFilters(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	seedExercise(t, s, "d1", "e1", t0)
	seedExercise(t, s, "d2", "e2", t0.Add(time.Minute))
	seedExercise(t, s, "d3", "e3b", t0.Add(2*time.Minute))
	seedExercise(t, s, "d3", "e3a", t0.Add(2*time.Minute))
	saveBid(t, s, "b1", "e2", "alice", "1C", t0.Add(3*time.Minute))

	all, err := s.FindExercises(ctx, practice.ExerciseFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2", "e3a", "e3b"}, ids(all))

	got, err := s.FindExercises(ctx, practice.ExerciseFilter{ExcludeDealIDs: []string{"d1"}, NotBidBy: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"e3a", "e3b"}, ids(got))

	got, err = s.FindExercises(ctx, practice.ExerciseFilter{DealID: "d3", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"e3a"}, ids(got))
}

func TestRecentBidsNewestFirst(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()
	seedExercise(t, s, "d1", "e1", t0)

	for i := 0; i < 7; i++ {
		saveBid(t, s, fmt.Sprintf("b%d", i), "e1", "alice", "1C", t0.Add(time.Duration(i)*time.Minute))
	}
	saveBid(t, s, "other", "e1", "bob", "1D", t0.Add(time.Hour))

	recent, err := s.ListRecentBidsByLearner(ctx, "alice", 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, "b6", recent[0].ID)
	assert.Equal(t, "b2", recent[4].ID)

	list, err := s.ListBidsByExercise(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, list, 8)
	assert.Equal(t, "b0", list[0].ID)
}

func TestRecentBidsSameMillisecondUsesInsertionOrder(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()
	seedExercise(t, s, "d1", "e1", t0)

	// ids sort the opposite way to insertion
	for _, id := range []string{"z", "m", "a"} {
		saveBid(t, s, id, "e1", "alice", "1C", t0.Add(300*time.Microsecond))
	}

	recent, err := s.ListRecentBidsByLearner(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "a", recent[0].ID)
	assert.Equal(t, "m", recent[1].ID)

	list, err := s.ListBidsByExercise(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "z", list[0].ID)
}

func TestBidsAndCommentsNeedKnownLearner(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()
	seedExercise(t, s, "d1", "e1", t0)

	err := s.SaveExerciseBid(ctx, &practice.ExerciseBid{
		ID: "b1", ExerciseID: "e1", LearnerID: "ghost", Bid: bridge.MustBid("1NT"), CreatedAt: t0,
	})
	assert.ErrorIs(t, err, shared.ErrLearnerNotFound)

	err = s.SaveExerciseBid(ctx, &practice.ExerciseBid{
		ID: "b2", ExerciseID: "missing", LearnerID: "ghost", Bid: bridge.MustBid("1NT"), CreatedAt: t0,
	})
	assert.ErrorIs(t, err, shared.ErrExerciseNotFound)

	c, err := practice.NewComment("c1", "e1", "ghost", "hi", t0)
	require.NoError(t, err)
	assert.ErrorIs(t, s.SaveComment(ctx, c), shared.ErrLearnerNotFound)

	_, err = s.GetExerciseBid(ctx, "b1")
	assert.ErrorIs(t, err, shared.ErrExerciseBidNotFound)
}

func TestWithinTx(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()
	root := seedExercise(t, s, "d1", "e1", t0)
	seedLearner(t, s, "alice")

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(repo practice.Repository) error {
		require.NoError(t, repo.SaveExerciseBid(ctx, &practice.ExerciseBid{
			ID: "b0", ExerciseID: "e1", LearnerID: "alice", Bid: bridge.Pass, CreatedAt: t0,
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = s.GetExerciseBid(ctx, "b0")
	assert.ErrorIs(t, err, shared.ErrExerciseBidNotFound)

	err = s.WithinTx(ctx, func(repo practice.Repository) error {
		bid, child, err := root.Continue(practice.IDs{BidID: "b1", FollowUpID: "e2"}, "alice", bridge.MustBid("1NT"), t0)
		if err != nil {
			return err
		}
		if err := repo.SaveExerciseBid(ctx, bid); err != nil {
			return err
		}
		return repo.SaveExercise(ctx, child)
	})
	require.NoError(t, err)

	child, err := s.GetExercise(ctx, "e2")
	require.NoError(t, err)
	assert.Equal(t, "1NT", child.Bids.String())
	require.NotNil(t, child.ParentID)
	assert.Equal(t, "e1", *child.ParentID)
	require.NotNil(t, child.SourceBidID)
	assert.Equal(t, "b1", *child.SourceBidID)

	orphans, err := s.ListBidsWithoutFollowUp(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestFollowUpIsUniquePerBid(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()
	seedExercise(t, s, "d1", "e1", t0)
	saveBid(t, s, "b1", "e1", "alice", "1C", t0)
	saveBid(t, s, "b2", "e1", "bob", "1D", t0.Add(time.Second))

	orphans, err := s.ListBidsWithoutFollowUp(ctx, 1)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "b1", orphans[0].ID)

	src, parent := "b1", "e1"
	require.NoError(t, s.SaveExercise(ctx, &practice.Exercise{
		ID: "e2", DealID: "d1", Bids: bridge.MustBidSequence("1C"), ParentID: &parent, SourceBidID: &src, CreatedAt: t0,
	}))
	err = s.SaveExercise(ctx, &practice.Exercise{
		ID: "e3", DealID: "d1", Bids: bridge.MustBidSequence("1C"), ParentID: &parent, SourceBidID: &src, CreatedAt: t0,
	})
	assert.True(t, shared.IsAlreadyExists(err))

	orphans, err = s.ListBidsWithoutFollowUp(ctx, 0)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "b2", orphans[0].ID)

	require.NoError(t, s.SaveExerciseBid(ctx, &practice.ExerciseBid{
		ID: "b3", ExerciseID: "e1", LearnerID: "alice", Bid: bridge.Pass, EndsAuction: true, CreatedAt: t0.Add(time.Minute),
	}))
	orphans, err = s.ListBidsWithoutFollowUp(ctx, 0)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "b2", orphans[0].ID)

	stored, err := s.GetExerciseBid(ctx, "b3")
	require.NoError(t, err)
	assert.True(t, stored.EndsAuction)
}

func TestConflictsAndTallies(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()
	seedExercise(t, s, "d1", "e1", t0)
	seedExercise(t, s, "d2", "e2", t0.Add(time.Minute))
	seedExercise(t, s, "d3", "e3", t0.Add(2*time.Minute))

	saveBid(t, s, "b1", "e1", "alice", "1C", t0)
	saveBid(t, s, "b2", "e1", "bob", "1D", t0)
	saveBid(t, s, "b3", "e2", "alice", "Pass", t0)
	saveBid(t, s, "b4", "e2", "alice", "Pass", t0)

	conflicts, err := s.ListConflictingExercises(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, ids(conflicts))

	conflicts, err = s.ListConflictingExercises(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	tallies, err := s.ListBidTallies(ctx)
	require.NoError(t, err)
	require.Len(t, tallies, 3)
	assert.Equal(t, practice.BidTally{ExerciseID: "e1", Bids: 2, DistinctBids: 2, CreatedAt: t0}, tallies[0])
	assert.Equal(t, 2, tallies[1].Bids)
	assert.Equal(t, 1, tallies[1].DistinctBids)
	assert.Equal(t, 0, tallies[2].Bids)
}

func TestComments(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()
	seedExercise(t, s, "d1", "e1", t0)
	seedLearner(t, s, "alice")
	seedLearner(t, s, "bob")

	c2, _ := practice.NewComment("c2", "e1", "alice", "second", t0.Add(time.Second))
	c1, _ := practice.NewComment("c1", "e1", "bob", "first", t0)
	require.NoError(t, s.SaveComment(ctx, c2))
	require.NoError(t, s.SaveComment(ctx, c1))

	got, err := s.ListCommentsByExercise(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Text)

	one, err := s.GetComment(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "alice", one.LearnerID)

	orphan, _ := practice.NewComment("c3", "missing", "bob", "hi", t0)
	assert.ErrorIs(t, s.SaveComment(ctx, orphan), shared.ErrExerciseNotFound)
}

func TestLearners(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	mk := func(id, email string, at time.Time) *learner.Learner {
		l, err := learner.NewLearner(learner.NewLearnerParams{ID: id, Email: learner.Email(email), PasswordHash: []byte("x"), Now: at})
		require.NoError(t, err)
		return l
	}
	require.NoError(t, s.Create(ctx, mk("l2", "b@x.io", t0.Add(time.Second))))
	require.NoError(t, s.Create(ctx, mk("l1", "a@x.io", t0)))
	assert.ErrorIs(t, s.Create(ctx, mk("l3", "a@x.io", t0)), shared.ErrLearnerAlreadyExists)

	got, err := s.GetByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, "l1", got.ID)
	assert.Equal(t, []byte("x"), got.PasswordHash)

	list, err := s.List(ctx, learner.DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "l1", list[0].ID)

	list, err = s.List(ctx, learner.ListOptions{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.TouchLastActive(ctx, "l1", t0.Add(time.Hour)))
	require.NoError(t, s.TouchLastActive(ctx, "l1", t0.Add(time.Minute)))
	got, err = s.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), got.LastActive)

	assert.ErrorIs(t, s.TouchLastActive(ctx, "ghost", t0), shared.ErrLearnerNotFound)
}

func TestUpSection(t *testing.T) {
	sql := "-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id TEXT);\n", upSection(sql))
	assert.Equal(t, "SELECT 1;", upSection("SELECT 1;"))
}
