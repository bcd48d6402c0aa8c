package cache

import (
	"context"

	"github.com/cybersapien/dnsrecon/internal/queryengine"
	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/records"
)

// CachedQuery composes a Cache with an inner DnsQuery. It implements
// queryengine.DnsQuery itself, so it can be dropped in anywhere a plain
// query engine is expected. The inner capability is held by value, never
// by embedding — composition, not inheritance (per design notes).
type CachedQuery struct {
	cache *Cache
	inner queryengine.DnsQuery
}

// NewCachedQuery wraps inner with cache.
func NewCachedQuery(c *Cache, inner queryengine.DnsQuery) *CachedQuery {
	return &CachedQuery{cache: c, inner: inner}
}

var _ queryengine.DnsQuery = (*CachedQuery)(nil)

// Query returns from cache on hit. On miss, it calls the inner query, then
// stores the result with ttl = min(record.ttl), defaulting to the cache's
// configured default TTL (300 seconds unless set otherwise) if every record
// reports ttl 0 or there are no records. There is no negative caching
// distinction: an NxDomain result, which the inner query reports as an empty
// record set, is cached exactly like any other result, with the same ttl
// handling (see DESIGN.md Open Question 1).
func (c *CachedQuery) Query(ctx context.Context, domain string, rt recordtype.Type) ([]records.DnsRecord, error) {
	key := NewKey(domain, rt)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	result, err := c.inner.Query(ctx, domain, rt)
	if err != nil {
		return nil, err
	}

	// ttl=0 tells Cache.Put to derive min(record.ttl), defaulting to the
	// cache's configured default (300s) when every record reports ttl 0.
	c.cache.Put(key, result, 0)
	return result, nil
}
