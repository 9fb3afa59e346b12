package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func failing(context.Context) error { return errBackend }
func healthy(context.Context) error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New(Config{Name: "cache", FailureThreshold: 3, OpenTimeout: time.Minute}).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(ctx, failing), errBackend)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New(Config{FailureThreshold: 2})
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	require.NoError(t, b.Execute(ctx, healthy))
	_ = b.Execute(ctx, failing)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New(Config{FailureThreshold: 1, OpenTimeout: time.Minute}).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	require.Equal(t, StateOpen, b.State())

	now = now.Add(time.Minute)
	assert.Equal(t, StateHalfOpen, b.State())

	_ = b.Execute(ctx, failing)
	assert.Equal(t, StateOpen, b.State())

	now = now.Add(time.Minute)
	require.NoError(t, b.Execute(ctx, healthy))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	b := New(Config{FailureThreshold: 1})
	_ = b.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.Equal(t, StateClosed, b.State())

	b = New(Config{FailureThreshold: 1, IsFailure: func(err error) bool { return !errors.Is(err, errBackend) }})
	_ = b.Execute(context.Background(), failing)
	assert.Equal(t, StateClosed, b.State())
}
