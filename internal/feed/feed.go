// Package feed provides optional real-time reference prices for the quoted
// outcome. The maker uses a feed price as a fresher fallback than the static
// market snapshot when the order book has an empty side.
package feed

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/gw/pm-maker/internal/config"
)

// ReferenceFeed streams the last traded price for one outcome.
type ReferenceFeed interface {
	Name() string
	Run(ctx context.Context) error
	LastPrice() float64
	LastUpdate() time.Time
	IsStale() bool // >30s since last update
}

// New returns the venue's feed for the outcome, or nil when the venue has
// no streaming reference price (the maker then uses the snapshot price only).
func New(cfg *config.Config, outcomeID string) ReferenceFeed {
	if cfg.Platform == config.PlatformPolymarket {
		return NewPolymarketFeed(outcomeID)
	}
	return nil
}

// baseFeed provides common locked price storage for venue feeds.
type baseFeed struct {
	name       string
	mu         sync.RWMutex
	lastPrice  float64
	lastUpdate time.Time
}

func (b *baseFeed) Name() string { return b.name }

func (b *baseFeed) LastPrice() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastPrice
}

func (b *baseFeed) LastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate
}

func (b *baseFeed) IsStale() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lastUpdate.IsZero() {
		return true
	}
	return time.Since(b.lastUpdate) > 30*time.Second
}

func (b *baseFeed) setPrice(price float64) {
	if math.IsNaN(price) || price <= 0 || price >= 1 {
		return
	}
	b.mu.Lock()
	b.lastPrice = price
	b.lastUpdate = time.Now()
	b.mu.Unlock()
}
