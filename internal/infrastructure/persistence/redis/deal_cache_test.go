package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/pkg/circuitbreaker"
)

func TestCachedDealRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	d, err := practice.NewDeal("d1", bridge.RandomDeal(bridge.NewRand()), at)
	require.NoError(t, err)

	data, err := json.Marshal(encodeDeal(d))
	require.NoError(t, err)

	var cached cachedDeal
	require.NoError(t, json.Unmarshal(data, &cached))
	got, err := cached.decode()
	require.NoError(t, err)

	assert.Equal(t, "d1", got.ID)
	assert.Equal(t, at, got.CreatedAt)
	assert.Equal(t, d.Deal.Dealer, got.Deal.Dealer)
	for _, seat := range bridge.Seats {
		assert.True(t, d.Deal.Hand(seat).Equal(got.Deal.Hand(seat)), seat.String())
	}
}

func TestCachedDealRejectsBadHands(t *testing.T) {
	var cached cachedDeal
	err := json.Unmarshal([]byte(`{"id":"d1","dealer":"North","vulnerable":"Neither","hands":["AKQ.-.-.-","","",""]}`), &cached)
	if err == nil {
		_, err = cached.decode()
	}
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "deal:abc", DealKey("abc"))
	assert.Equal(t, "lock:next_exercise:alice", LockKey("next_exercise:alice"))
}

func TestDealCacheBreakerSkipsUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	breaker := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1, OpenTimeout: time.Hour})
	cache := NewDealCache(&Cache{client: client}, 0).WithBreaker(breaker)
	ctx := context.Background()

	_, found, err := cache.GetDeal(ctx, "d1")
	require.Error(t, err)
	assert.False(t, found)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	_, _, err = cache.GetDeal(ctx, "d1")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
}
