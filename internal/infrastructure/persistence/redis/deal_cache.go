package redis

import (
	"context"
	"errors"
	"time"

	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/pkg/circuitbreaker"
)

// DealCache implements query.DealCache on top of Cache.
type DealCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.Breaker
}

// NewDealCache creates a new DealCache. A zero ttl uses TTLDealCache.
func NewDealCache(cache *Cache, ttl time.Duration) *DealCache {
	if ttl <= 0 {
		ttl = TTLDealCache
	}
	return &DealCache{cache: cache, ttl: ttl}
}

// WithBreaker guards every Redis round trip with b. While b is open the
// cache reports circuitbreaker.ErrOpen without touching the network.
func (d *DealCache) WithBreaker(b *circuitbreaker.Breaker) *DealCache {
	d.breaker = b
	return d
}

func (d *DealCache) guard(ctx context.Context, fn func(context.Context) error) error {
	if d.breaker == nil {
		return fn(ctx)
	}
	return d.breaker.Execute(ctx, fn)
}

// cachedDeal is the JSON shape of a cached deal.
type cachedDeal struct {
	ID         string               `json:"id"`
	Dealer     bridge.Seat          `json:"dealer"`
	Vulnerable bridge.Vulnerability `json:"vulnerable"`
	Hands      [4]bridge.Hand       `json:"hands"`
	CreatedAt  time.Time            `json:"created_at"`
}

func encodeDeal(d *practice.Deal) cachedDeal {
	return cachedDeal{
		ID:         d.ID,
		Dealer:     d.Deal.Dealer,
		Vulnerable: d.Deal.Vulnerable,
		Hands:      d.Deal.Hands,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

func (c cachedDeal) decode() (*practice.Deal, error) {
	deal, err := bridge.NewDeal(c.Dealer, c.Vulnerable, c.Hands)
	if err != nil {
		return nil, err
	}
	return &practice.Deal{ID: c.ID, Deal: deal, CreatedAt: c.CreatedAt}, nil
}

// GetDeal returns the cached deal. A miss is reported as found=false.
func (d *DealCache) GetDeal(ctx context.Context, id string) (*practice.Deal, bool, error) {
	var (
		cached cachedDeal
		miss   bool
	)
	err := d.guard(ctx, func(ctx context.Context) error {
		err := d.cache.Get(ctx, DealKey(id), &cached)
		if errors.Is(err, ErrCacheMiss) {
			miss = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if miss {
		return nil, false, nil
	}
	deal, err := cached.decode()
	if err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = d.cache.Delete(ctx, DealKey(id))
		return nil, false, nil
	}
	return deal, true, nil
}

// SetDeal caches a deal.
func (d *DealCache) SetDeal(ctx context.Context, deal *practice.Deal) error {
	if deal == nil {
		return nil
	}
	return d.guard(ctx, func(ctx context.Context) error {
		return d.cache.Set(ctx, DealKey(deal.ID), encodeDeal(deal), d.ttl)
	})
}
