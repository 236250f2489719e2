package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"recipes/internal/domain"
	"recipes/internal/port"
)

// QueryCache is an LRU of recommendation results with a TTL. Entries
// are tagged with the bundle that produced them and dropped once a
// different bundle is active.
type QueryCache struct {
	mu       sync.RWMutex
	entries  map[uint64]*cacheEntry
	order    []uint64
	maxSize  int
	ttl      time.Duration
	bundleID string
	now      func() time.Time
}

type cacheEntry struct {
	results   []domain.Recommendation
	timestamp time.Time
	bundleID  string
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[uint64]*cacheEntry),
		order:   make([]uint64, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// cacheKey normalizes the query so "Rice ,Salt" and "rice, salt" share
// an entry.
func cacheKey(query string, topK int) uint64 {
	parts := strings.Split(strings.ToLower(query), ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return xxhash.Sum64String(strings.Join(parts, ",") + "\x00" + strconv.Itoa(topK))
}

func (c *QueryCache) Get(query string, topK int) ([]domain.Recommendation, bool) {
	key := cacheKey(query, topK)
	c.mu.RLock()
	entry, exists := c.entries[key]
	current := c.bundleID
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if c.now().Sub(entry.timestamp) > c.ttl || entry.bundleID != current {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.moveToEnd(key)
	c.mu.Unlock()

	return entry.results, true
}

func (c *QueryCache) Put(query string, topK int, results []domain.Recommendation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, topK)
	entry := &cacheEntry{
		results:   results,
		timestamp: c.now(),
		bundleID:  c.bundleID,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = entry
	c.order = append(c.order, key)
}

// SetBundle records the active bundle; switching bundles empties the cache.
func (c *QueryCache) SetBundle(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == c.bundleID {
		return
	}
	c.bundleID = id
	c.entries = make(map[uint64]*cacheEntry)
	c.order = c.order[:0]
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key uint64) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key uint64) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// CachedRecommender serves repeated queries from a QueryCache.
type CachedRecommender struct {
	next  port.Recommender
	cache *QueryCache
}

func NewCachedRecommender(next port.Recommender, cache *QueryCache) *CachedRecommender {
	return &CachedRecommender{
		next:  next,
		cache: cache,
	}
}

func (r *CachedRecommender) Recommend(ingredients string, k int) ([]domain.Recommendation, error) {
	if results, hit := r.cache.Get(ingredients, k); hit {
		return results, nil
	}

	results, err := r.next.Recommend(ingredients, k)
	if err != nil {
		return nil, err
	}

	r.cache.Put(ingredients, k, results)
	return results, nil
}
