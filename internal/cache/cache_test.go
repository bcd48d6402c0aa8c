package cache

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybersapien/dnsrecon/internal/errs"
	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/records"
)

func aRecord(t *testing.T, domain string, ttl uint32) records.DnsRecord {
	t.Helper()
	rec, err := records.New(domain, recordtype.A, records.NewIP(net.ParseIP("192.0.2.1")),
		ttl, recordtype.NoError, "8.8.8.8", time.Now(), 1)
	require.NoError(t, err)
	return rec
}

func TestCache_PutThenGet_Hit(t *testing.T) {
	c := New(10, time.Minute)
	key := NewKey("example.com", recordtype.A)
	c.Put(key, []records.DnsRecord{aRecord(t, "example.com", 300)}, 0)

	got, ok := c.Get(key)
	require.True(t, ok)
	require.Len(t, got, 1)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestCache_Get_MissOnAbsentKey(t *testing.T) {
	c := New(10, time.Minute)
	_, ok := c.Get(NewKey("nope.example.com", recordtype.A))
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestCache_Get_ExpiredEntryIsMiss(t *testing.T) {
	c := New(10, time.Minute)
	key := NewKey("example.com", recordtype.A)
	c.Put(key, []records.DnsRecord{aRecord(t, "example.com", 300)}, time.Millisecond)

	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCache_Key_NormalizesDomain(t *testing.T) {
	a := NewKey("Example.COM.", recordtype.A)
	b := NewKey("example.com", recordtype.A)
	assert.Equal(t, a, b)
}

func TestCache_Put_DerivesMinTTL(t *testing.T) {
	c := New(10, 300*time.Second)
	key := NewKey("example.com", recordtype.MX)

	recs := []records.DnsRecord{aRecord(t, "example.com", 600), aRecord(t, "example.com", 60)}
	c.Put(key, recs, 0)

	e, ok := c.lru.Peek(key)
	require.True(t, ok)
	assert.Equal(t, 60*time.Second, e.ttl)
}

func TestCache_PurgeExpiredMakesRoomAtCapacity(t *testing.T) {
	c := New(1, time.Minute)

	first := NewKey("a.example.com", recordtype.A)
	c.Put(first, []records.DnsRecord{aRecord(t, "a.example.com", 300)}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	second := NewKey("b.example.com", recordtype.A)
	c.Put(second, []records.DnsRecord{aRecord(t, "b.example.com", 300)}, time.Minute)

	assert.Equal(t, 1, c.Stats().Size)
	_, ok := c.Get(second)
	assert.True(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := New(10, time.Minute)
	key := NewKey("example.com", recordtype.A)
	c.Put(key, []records.DnsRecord{aRecord(t, "example.com", 300)}, 0)
	c.Clear()
	assert.Equal(t, 0, c.Stats().Size)
}

type stubQuery struct {
	calls int
	recs  []records.DnsRecord
	err   error
}

func (s *stubQuery) Query(ctx context.Context, domain string, rt recordtype.Type) ([]records.DnsRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.recs, nil
}

func TestCachedQuery_SecondCallHitsCache(t *testing.T) {
	inner := &stubQuery{recs: []records.DnsRecord{aRecord(t, "example.com", 300)}}
	cq := NewCachedQuery(New(10, time.Minute), inner)

	_, err := cq.Query(context.Background(), "example.com", recordtype.A)
	require.NoError(t, err)
	_, err = cq.Query(context.Background(), "example.com", recordtype.A)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestCachedQuery_PropagatesInnerError(t *testing.T) {
	inner := &stubQuery{err: errs.New(errs.Resolve, "test", assert.AnError)}
	cq := NewCachedQuery(New(10, time.Minute), inner)

	_, err := cq.Query(context.Background(), "example.com", recordtype.A)
	assert.Error(t, err)
}

// An NXDOMAIN answer comes back from the inner query as (nil, nil) — an
// empty, non-error result. CachedQuery caches it exactly like a positive
// answer: the second call must not reach the inner query again.
func TestCachedQuery_CachesEmptyNxDomainResult(t *testing.T) {
	inner := &stubQuery{recs: nil}
	cq := NewCachedQuery(New(10, time.Minute), inner)

	recs, err := cq.Query(context.Background(), "nope.example.com", recordtype.A)
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = cq.Query(context.Background(), "nope.example.com", recordtype.A)
	require.NoError(t, err)
	assert.Empty(t, recs)

	assert.Equal(t, 1, inner.calls)
}
