package memory

import (
	"context"
	"sync"

	"github.com/rychipman/bridge-practice/internal/domain/practice"
)

// Locker is an in-process keyed mutex.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch      chan struct{} // holds one token while the key is locked
	waiters int
}

var _ practice.Locker = (*Locker)(nil)

// NewLocker creates a Locker with no keys held.
func NewLocker() *Locker {
	return &Locker{slots: make(map[string]*lockSlot)}
}

// Lock implements practice.Locker.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.waiters++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, slot, true) })
	}, nil
}

func (l *Locker) release(key string, slot *lockSlot, held bool) {
	if held {
		<-slot.ch
	}
	l.mu.Lock()
	slot.waiters--
	if slot.waiters == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}
