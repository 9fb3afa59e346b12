package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
)

func TestHandLinesShowsVoids(t *testing.T) {
	h, err := bridge.ParseHand("AKQJT98765432|||")
	require.NoError(t, err)

	lines := handLines(h)
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[0], "AKQJT98765432"))
	for _, l := range lines[1:] {
		assert.True(t, strings.HasSuffix(l, " -"), l)
	}
}

func TestTallyCallsOrdersByCount(t *testing.T) {
	bids := []*practice.ExerciseBid{
		{Bid: bridge.MustBid("1NT")},
		{Bid: bridge.MustBid("Pass")},
		{Bid: bridge.MustBid("1NT")},
		{Bid: bridge.MustBid("1S")},
	}

	got := tallyCalls(bids)
	assert.Equal(t, []callTally{
		{Call: "1NT", Count: 2},
		{Call: "1S", Count: 1},
		{Call: "Pass", Count: 1},
	}, got)
	assert.Empty(t, tallyCalls(nil))
}

func TestCallLabels(t *testing.T) {
	calls := bridge.MustBidSequence("1NT").LegalCalls()
	labels := callLabels(calls)
	assert.Contains(t, labels, "Pass")
	assert.Contains(t, labels, "Dbl")
	assert.NotContains(t, labels, "1NT")
}

func TestRunWithoutCommandPrintsUsage(t *testing.T) {
	var stderr bytes.Buffer
	err := run(context.Background(), nil, &stderr)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr.String(), "usage: bridgectl")
}

func TestRunRegisterAndList(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("BCRYPT_COST", "4")
	db := filepath.Join(t.TempDir(), "bridge.db")
	env := filepath.Join(t.TempDir(), "missing.env")

	var stderr bytes.Buffer
	err := run(context.Background(), []string{"-db", db, "-env", env, "register", "-email", "ann@example.com", "-password", "correct horse"}, &stderr)
	require.NoError(t, err, stderr.String())

	err = run(context.Background(), []string{"-db", db, "-env", env, "register", "-email", "ann@example.com", "-password", "correct horse"}, &stderr)
	assert.Error(t, err)

	err = run(context.Background(), []string{"-db", db, "-env", env, "learners"}, &stderr)
	assert.NoError(t, err)

	err = run(context.Background(), []string{"-db", db, "-env", env, "review"}, &stderr)
	assert.NoError(t, err)
}
