// Package stats computes admin marketplace statistics behind a TTL cache.
// The cache is an explicit dependency: callers invalidate it after every
// committed ledger mutation instead of waiting for expiry.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/sokohub/soko/internal/app/accounts"
	"github.com/sokohub/soko/internal/domain"
	"github.com/sokohub/soko/internal/infra/observability"
)

// Stats is a point-in-time summary of the marketplace.
type Stats struct {
	OrdersByStatus  map[domain.OrderStatus]int64 `json:"orders_by_status"`
	CompletedGMV    int64                        `json:"completed_gmv"`
	PlatformBalance int64                        `json:"platform_balance"`
	Currency        string                       `json:"currency"`
	ComputedAt      time.Time                    `json:"computed_at"`
}

// Config controls the cache.
type Config struct {
	Currency string
	TTL      time.Duration

	// Now is an injectable clock for testing.
	Now func() time.Time
}

// DefaultConfig returns a 30s cache over KES.
func DefaultConfig() Config {
	return Config{Currency: "KES", TTL: 30 * time.Second, Now: time.Now}
}

// Cache holds the most recent Stats until it expires or is invalidated.
type Cache struct {
	store domain.Store
	cfg   Config

	mu      sync.Mutex
	cached  *Stats
	expires time.Time
	gen     uint64 // bumped by Invalidate; a compute started before it is not stored
}

// New creates a stats cache.
func New(store domain.Store, cfg Config) *Cache {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Currency == "" {
		cfg.Currency = "KES"
	}
	return &Cache{store: store, cfg: cfg}
}

// Get returns cached stats, recomputing them when stale.
func (c *Cache) Get(ctx context.Context) (Stats, error) {
	c.mu.Lock()
	if c.cached != nil && c.cfg.Now().Before(c.expires) {
		s := *c.cached
		c.mu.Unlock()
		observability.StatsCacheLookups.WithLabelValues("hit").Inc()
		return s, nil
	}
	gen := c.gen
	c.mu.Unlock()
	observability.StatsCacheLookups.WithLabelValues("miss").Inc()

	s, err := c.compute(ctx)
	if err != nil {
		return Stats{}, err
	}

	c.mu.Lock()
	if gen == c.gen {
		c.cached = &s
		c.expires = c.cfg.Now().Add(c.cfg.TTL)
	}
	c.mu.Unlock()
	return s, nil
}

// Invalidate drops the cached value.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.gen++
	c.mu.Unlock()
}

func (c *Cache) compute(ctx context.Context) (Stats, error) {
	s := Stats{Currency: c.cfg.Currency}
	err := c.store.Snapshot(ctx, func(q domain.Queries) error {
		var err error
		if s.OrdersByStatus, err = q.CountOrdersByStatus(ctx); err != nil {
			return err
		}
		if s.CompletedGMV, err = q.SumOrderTotals(ctx, domain.StatusCompleted); err != nil {
			return err
		}
		p, err := accounts.Platform(ctx, q, c.cfg.Currency)
		if err != nil {
			return err
		}
		s.PlatformBalance, err = q.AccountBalance(ctx, p.ID)
		return err
	})
	if err != nil {
		return Stats{}, err
	}
	s.ComputedAt = c.cfg.Now()
	return s, nil
}
