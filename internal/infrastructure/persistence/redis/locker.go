package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rychipman/bridge-practice/internal/domain/practice"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a practice.Locker shared by every server replica.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

var _ practice.Locker = (*Locker)(nil)

// NewLocker creates a Locker. A zero ttl uses TTLDistributedLock.
func NewLocker(cache *Cache, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = TTLDistributedLock
	}
	return &Locker{client: cache.Client(), ttl: ttl, retry: 25 * time.Millisecond}
}

// Lock blocks until the lock on key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := LockKey(key)
	token := uuid.NewString()

	wait := l.retry
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		if wait < 250*time.Millisecond {
			wait *= 2
		}
	}

	return func() {
		// Release with a fresh context so a cancelled caller still unlocks.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
	}, nil
}
