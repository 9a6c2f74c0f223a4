package cache

import (
	"sync"
	"time"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
)

// DefaultTTL is the freshness window used when none is configured
const DefaultTTL = time.Minute

// CacheEntry represents a cached pair rate with its fetch time
type CacheEntry struct {
	Rate      float64
	Timestamp time.Time
}

// RateCache is a thread-safe in-memory cache of directional pair rates.
// Entries are never evicted; a stale entry is ignored on read and overwritten on the next Put.
type RateCache struct {
	cache map[entity.PairKey]CacheEntry
	ttl   time.Duration
	now   func() time.Time
	mutex sync.RWMutex
}

// NewRateCache creates a new rate cache with the given TTL
func NewRateCache(ttl time.Duration) *RateCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RateCache{
		cache: make(map[entity.PairKey]CacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock replaces the time source, used by tests to move time forward
func (c *RateCache) WithClock(now func() time.Time) *RateCache {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.now = now
	return c
}

// Get returns the rate for the exact ordered pair if present and fresh.
// The reverse pair is never consulted.
func (c *RateCache) Get(from, to string) (float64, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[entity.NewPairKey(from, to)]
	if !exists || c.now().Sub(entry.Timestamp) >= c.ttl {
		return 0, false
	}

	return entry.Rate, true
}

// Put stores or overwrites the rate for the ordered pair, stamped with the current time
func (c *RateCache) Put(from, to string, rate float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[entity.NewPairKey(from, to)] = CacheEntry{
		Rate:      rate,
		Timestamp: c.now(),
	}
}

// TTL returns the freshness window
func (c *RateCache) TTL() time.Duration {
	return c.ttl
}

// Clear clears all entries from the cache
func (c *RateCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[entity.PairKey]CacheEntry)
}

// Size returns the number of items in the cache
func (c *RateCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}
