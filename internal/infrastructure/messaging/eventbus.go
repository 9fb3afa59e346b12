// Package messaging implements the in-process event bus that carries domain
// events from command handlers to their subscribers.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rychipman/bridge-practice/internal/domain/shared"
	"github.com/rychipman/bridge-practice/pkg/retry"
)

// ErrEventBusClosed is returned by Subscribe and Publish after Close.
var ErrEventBusClosed = errors.New("event bus is closed")

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus delivers events to subscribers in the same process.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	asyncMode   bool
	workerPool  chan struct{}
	retrier     *retry.Retrier
	logger      *slog.Logger
	metrics     *EventBusMetrics
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// InMemoryEventBusConfig contains configuration for InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs handlers on a bounded worker pool instead of inside Publish.
	AsyncMode bool

	// WorkerPoolSize is the number of concurrent async handlers.
	WorkerPoolSize int

	// Retry re-runs a failing handler. Nil means one attempt.
	Retry *retry.Retrier

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultInMemoryEventBusConfig returns sensible defaults.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
		Retry: retry.New(
			retry.WithMaxAttempts(3),
			retry.WithInitialDelay(50*time.Millisecond),
			retry.WithMaxDelay(time.Second),
		),
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}

	return &InMemoryEventBus{
		handlers:   make(map[shared.EventType][]shared.EventHandler),
		asyncMode:  config.AsyncMode,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		retrier:    config.Retry,
		logger:     config.Logger.With("component", "event_bus"),
		metrics:    newEventBusMetrics(),
		closeCh:    make(chan struct{}),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType)
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish sends an event to all subscribed handlers. In sync mode handler
// errors are logged, not returned; the publisher's work is already done.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	if b.asyncMode {
		// Registered under the read lock so Close cannot slip in between.
		b.wg.Add(len(handlers))
	}
	b.mu.RUnlock()

	b.metrics.recordPublish(event.EventType())

	if len(handlers) == 0 {
		b.logger.Debug("no handlers for event", "event_type", event.EventType())
		return nil
	}

	for _, handler := range handlers {
		if b.asyncMode {
			go b.executeAsync(event, handler)
			continue
		}
		if err := b.execute(event, handler); err != nil {
			b.logger.Error("handler error", "event_type", event.EventType(), "error", err)
		}
	}
	return nil
}

func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	defer b.wg.Done()

	select {
	case b.workerPool <- struct{}{}:
		defer func() { <-b.workerPool }()
	case <-b.closeCh:
		return
	}

	if err := b.execute(event, handler); err != nil {
		b.logger.Error("async handler error",
			"event_type", event.EventType(),
			"aggregate_id", event.AggregateID(),
			"error", err,
		)
	}
}

// execute runs the handler under the retry policy. A panic counts as a
// permanent failure.
func (b *InMemoryEventBus) execute(event shared.Event, handler shared.EventHandler) error {
	start := time.Now()

	call := func(context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("event handler panicked",
					"event_type", event.EventType(),
					"panic", r,
					"stack", string(debug.Stack()),
				)
				err = retry.Permanent(fmt.Errorf("handler panic: %v", r))
			}
		}()
		return handler(event)
	}

	var err error
	if b.retrier != nil {
		err = b.retrier.Do(context.Background(), call)
	} else {
		err = call(context.Background())
	}

	b.metrics.recordHandler(time.Since(start), err == nil)
	return err
}

// Close stops accepting events and waits for running handlers. Async
// handlers still queued for a worker slot are dropped.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()

	b.logger.Info("event bus closed")
	return nil
}

// Metrics returns a snapshot of the bus counters.
func (b *InMemoryEventBus) Metrics() EventBusMetricsSnapshot {
	return b.metrics.snapshot()
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// EventBusMetrics tracks event bus counters.
type EventBusMetrics struct {
	mu sync.Mutex

	published map[shared.EventType]int64
	successes int64
	failures  int64
	duration  time.Duration
}

func newEventBusMetrics() *EventBusMetrics {
	return &EventBusMetrics{published: make(map[shared.EventType]int64)}
}

func (m *EventBusMetrics) recordPublish(t shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[t]++
}

func (m *EventBusMetrics) recordHandler(d time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration += d
	if ok {
		m.successes++
	} else {
		m.failures++
	}
}

// EventBusMetricsSnapshot is a point-in-time copy of the counters.
type EventBusMetricsSnapshot struct {
	Published        map[shared.EventType]int64
	HandlerSuccesses int64
	HandlerFailures  int64
	AverageDuration  time.Duration
}

func (m *EventBusMetrics) snapshot() EventBusMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := EventBusMetricsSnapshot{
		Published:        make(map[shared.EventType]int64, len(m.published)),
		HandlerSuccesses: m.successes,
		HandlerFailures:  m.failures,
	}
	for k, v := range m.published {
		snap.Published[k] = v
	}
	if n := m.successes + m.failures; n > 0 {
		snap.AverageDuration = m.duration / time.Duration(n)
	}
	return snap
}
