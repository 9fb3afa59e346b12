package command

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/memory"
)

var testNow = time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) GenerateID() string {
	return fmt.Sprintf("id-%03d", s.n.Add(1))
}

func seedRoot(t *testing.T, store *memory.Store, bids string) *practice.Exercise {
	t.Helper()
	ctx := context.Background()

	d, err := practice.NewDeal("deal-1", bridge.RandomDeal(bridge.NewRand()), testNow)
	require.NoError(t, err)
	require.NoError(t, store.SaveDeal(ctx, d))

	ex, err := practice.NewRootExercise("root", d.ID, testNow)
	require.NoError(t, err)
	ex.Bids = bridge.MustBidSequence(bids)
	require.NoError(t, store.SaveExercise(ctx, ex))
	return ex
}

func seedLearner(t *testing.T, store *memory.Store, id string) {
	t.Helper()
	l, err := learner.NewLearner(learner.NewLearnerParams{
		ID: id, Email: learner.Email(id + "@x.io"), PasswordHash: []byte("h"), Now: testNow.Add(-time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), l))
}
