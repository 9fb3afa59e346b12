// Package retry retries operations with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// ErrMaxAttempts is wrapped around the last error when attempts run out.
var ErrMaxAttempts = errors.New("max retry attempts exceeded")

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONFIG
// ══════════════════════════════════════════════════════════════════════════════

// Config holds the backoff parameters.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// Jitter is the fraction (0..1) of each delay that is randomised.
	Jitter float64

	// OnRetry is called before sleeping between attempts.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns a short retry policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
		Jitter:       0.2,
	}
}

// Option modifies a Config.
type Option func(*Config)

func WithMaxAttempts(n int) Option { return func(c *Config) { c.MaxAttempts = n } }
func WithInitialDelay(d time.Duration) Option { return func(c *Config) { c.InitialDelay = d } }
func WithMaxDelay(d time.Duration) Option { return func(c *Config) { c.MaxDelay = d } }
func WithMultiplier(m float64) Option { return func(c *Config) { c.Multiplier = m } }
func WithJitter(j float64) Option { return func(c *Config) { c.Jitter = j } }
func WithOnRetry(fn func(int, error, time.Duration)) Option {
	return func(c *Config) { c.OnRetry = fn }
}

// ══════════════════════════════════════════════════════════════════════════════
// RETRIER
// ══════════════════════════════════════════════════════════════════════════════

// Retrier runs operations under a fixed Config.
type Retrier struct {
	cfg   Config
	sleep func(context.Context, time.Duration) error
}

// New creates a Retrier from DefaultConfig with opts applied.
func New(opts ...Option) *Retrier {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	return &Retrier{cfg: cfg, sleep: sleepContext}
}

// Dependency is the policy used when connecting to databases and caches at
// startup: enough attempts to ride out a container that is still booting.
func Dependency(opts ...Option) *Retrier {
	base := []Option{
		WithMaxAttempts(8),
		WithInitialDelay(250 * time.Millisecond),
		WithMaxDelay(10 * time.Second),
	}
	return New(append(base, opts...)...)
}

// Do calls fn until it succeeds, returns a permanent error, the context is
// done, or the attempts run out.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return errors.Unwrap(lastErr)
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry(attempt, lastErr, delay)
		}
		if err := r.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttempts, r.cfg.MaxAttempts, lastErr)
}

// DoWithData is Do for operations that return a value.
func DoWithData[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// delay returns the backoff before the attempt after the given one.
func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.cfg.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= r.cfg.Multiplier
	}
	if limit := float64(r.cfg.MaxDelay); limit > 0 && d > limit {
		d = limit
	}
	if r.cfg.Jitter > 0 {
		spread := d * r.cfg.Jitter
		d += spread * (2*rand.Float64() - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
