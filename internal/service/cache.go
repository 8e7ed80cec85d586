package service

import (
	"sync"
	"time"

	"ammowatch/internal/intel"
)

// dealCache is a best-effort TTL cache for the ranked deal set. Staleness
// up to the TTL is an accepted tradeoff; entries are value snapshots so
// no locking discipline beyond atomic get/set is needed.
type dealCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	deals   []intel.MarketDeal
	asOf    time.Time
	expires time.Time
}

func newDealCache(ttl time.Duration) *dealCache {
	return &dealCache{entries: make(map[string]cacheEntry), ttl: ttl}
}

func (c *dealCache) get(key string, now time.Time) ([]intel.MarketDeal, time.Time, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, time.Time{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || now.After(entry.expires) {
		return nil, time.Time{}, false
	}
	deals := make([]intel.MarketDeal, len(entry.deals))
	copy(deals, entry.deals)
	return deals, entry.asOf, true
}

func (c *dealCache) set(key string, deals []intel.MarketDeal, asOf time.Time) {
	if c == nil || c.ttl <= 0 {
		return
	}
	snapshot := make([]intel.MarketDeal, len(deals))
	copy(snapshot, deals)
	c.mu.Lock()
	c.entries[key] = cacheEntry{deals: snapshot, asOf: asOf, expires: asOf.Add(c.ttl)}
	c.mu.Unlock()
}
