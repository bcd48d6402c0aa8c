// Package cache implements the TTL-aware response cache in front of the
// Query Engine, and the cached-query wrapper that composes a cache with an
// inner query capability.
package cache

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/records"
)

// Key identifies a cache entry by normalized domain and record type.
// Domain normalization: lowercase, trailing dot stripped.
type Key struct {
	Domain string
	Type   recordtype.Type
}

// NewKey normalizes domain and builds a Key.
func NewKey(domain string, rt recordtype.Type) Key {
	return Key{Domain: normalizeDomain(domain), Type: rt}
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSuffix(domain, "."))
}

// entry is the stored value plus its monotonic insertion time and TTL.
type entry struct {
	records  []records.DnsRecord
	cachedAt time.Time
	ttl      time.Duration
}

func (e entry) isValid(now time.Time) bool {
	return now.Sub(e.cachedAt) < e.ttl
}

// Stats is a snapshot of cache counters, returned by Cache.Stats.
type Stats struct {
	Size      int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache is a concurrent mapping from Key to a set of cached DnsRecords.
// Backing storage is an LRU of fixed capacity: before an insert that would
// grow past capacity, expired entries are purged first; if the cache is
// still full, the LRU handles the "evict oldest" step itself by recency of
// use rather than strict insertion age — the resolution picked for the
// eviction-order open question (see DESIGN.md).
type Cache struct {
	mu         sync.RWMutex
	lru        *lru.Cache[Key, entry]
	maxSize    int
	defaultTTL time.Duration

	hits      int64
	misses    int64
	evictions int64
}

// New creates a Cache with the given capacity and default TTL.
func New(maxSize int, defaultTTL time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	if defaultTTL <= 0 {
		defaultTTL = 300 * time.Second
	}
	c := &Cache{maxSize: maxSize, defaultTTL: defaultTTL}
	backing, _ := lru.NewWithEvict[Key, entry](maxSize, func(Key, entry) {
		c.evictions++
	})
	c.lru = backing
	return c
}

// Get returns the cached records iff the entry exists and is still valid.
// Expired entries are not returned, but are not evicted by Get alone
// (lazy expiry, per spec).
func (c *Cache) Get(key Key) ([]records.DnsRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Peek(key)
	if !ok || !e.isValid(time.Now()) {
		c.misses++
		return nil, false
	}
	c.hits++
	out := make([]records.DnsRecord, len(e.records))
	copy(out, e.records)
	// Touch recency without altering the stored value.
	c.lru.Get(key)
	return out, true
}

// Put inserts recs under key. If ttl <= 0, the effective TTL is the
// minimum TTL across recs, falling back to the cache's configured default.
// Before insertion, if the cache is at capacity for a new key, expired
// entries are purged first; the underlying LRU evicts by recency if
// capacity is still exhausted. Insertion overwrites any previous entry.
func (c *Cache) Put(key Key, recs []records.DnsRecord, ttl time.Duration) {
	if ttl <= 0 {
		ttl = minTTL(recs, c.defaultTTL)
	}

	stored := make([]records.DnsRecord, len(recs))
	copy(stored, recs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.lru.Peek(key); !exists && c.lru.Len() >= c.maxSize {
		c.purgeExpiredLocked()
	}

	c.lru.Add(key, entry{records: stored, cachedAt: time.Now(), ttl: ttl})
}

func minTTL(recs []records.DnsRecord, fallback time.Duration) time.Duration {
	if len(recs) == 0 {
		return fallback
	}
	min := recs[0].TTL
	for _, r := range recs[1:] {
		if r.TTL < min {
			min = r.TTL
		}
	}
	if min == 0 {
		return fallback
	}
	return time.Duration(min) * time.Second
}

// purgeExpiredLocked removes every entry that is no longer valid. Caller
// must hold c.mu for writing.
func (c *Cache) purgeExpiredLocked() {
	now := time.Now()
	for _, k := range c.lru.Keys() {
		e, ok := c.lru.Peek(k)
		if ok && !e.isValid(now) {
			// Remove() itself invokes the onEvicted callback registered in
			// New, so eviction counting happens there, not here.
			c.lru.Remove(k)
		}
	}
}

// Clear removes every entry from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Stats returns a snapshot of cache counters and current size.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Size:      c.lru.Len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
