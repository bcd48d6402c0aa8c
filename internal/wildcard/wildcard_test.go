package wildcard

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/records"
)

// fakeQuery answers every probe with the same fixed IP for any label under
// wildcardZone, and NXDOMAIN (no records, no error) otherwise.
type fakeQuery struct {
	wildcardZone string
	ip           string
}

func (f *fakeQuery) Query(ctx context.Context, domain string, rt recordtype.Type) ([]records.DnsRecord, error) {
	if domain == f.wildcardZone || hasSuffixZone(domain, f.wildcardZone) {
		rec, err := records.New(domain, recordtype.A, records.NewIP(net.ParseIP(f.ip)),
			300, recordtype.NoError, "8.8.8.8", time.Now(), 1)
		if err != nil {
			return nil, err
		}
		return []records.DnsRecord{rec}, nil
	}
	return nil, nil
}

func hasSuffixZone(domain, zone string) bool {
	if len(domain) <= len(zone) {
		return domain == zone
	}
	return domain[len(domain)-len(zone)-1:] == "."+zone
}

func TestFilter_Analyze_DetectsWildcard(t *testing.T) {
	f := New(&fakeQuery{wildcardZone: "example.com", ip: "192.0.2.9"}, 10, zerolog.Nop())
	a := f.Analyze(context.Background(), "example.com")

	assert.True(t, a.HasWildcard)
	_, has := a.WildcardIPs["192.0.2.9"]
	assert.True(t, has)
	assert.GreaterOrEqual(t, a.Confidence, lowConfidence)
}

func TestFilter_Analyze_NoWildcardWhenNoAnswers(t *testing.T) {
	f := New(&fakeQuery{wildcardZone: "nonexistent.example", ip: "192.0.2.9"}, 10, zerolog.Nop())
	a := f.Analyze(context.Background(), "example.com")
	assert.False(t, a.HasWildcard)
}

func TestFilter_Analyze_IsCachedPerZone(t *testing.T) {
	fq := &fakeQuery{wildcardZone: "example.com", ip: "192.0.2.9"}
	f := New(fq, 10, zerolog.Nop())

	a1 := f.Analyze(context.Background(), "example.com")
	a2 := f.Analyze(context.Background(), "example.com")
	assert.Equal(t, a1, a2)
}

// trackingQuery records every domain it was asked to resolve and always
// answers NXDOMAIN, so ZoneOf's probing boundary can be asserted directly.
type trackingQuery struct {
	queried map[string]bool
}

func (tq *trackingQuery) Query(ctx context.Context, domain string, rt recordtype.Type) ([]records.DnsRecord, error) {
	if tq.queried == nil {
		tq.queried = make(map[string]bool)
	}
	tq.queried[domain] = true
	return nil, nil
}

func TestFilter_ZoneOf_NeverProbesAbovePublicSuffix(t *testing.T) {
	tq := &trackingQuery{}
	f := New(tq, 10, zerolog.Nop())

	_, found := f.ZoneOf(context.Background(), "host.example.com")
	assert.False(t, found)

	for domain := range tq.queried {
		assert.NotEqual(t, "com", domain, "must never probe the public suffix itself")
	}
}

func TestFilter_Apply_DiscardsWildcardGroupAboveThreshold(t *testing.T) {
	fq := &fakeQuery{wildcardZone: "example.com", ip: "192.0.2.9"}
	f := New(fq, 2, zerolog.Nop())

	mk := func(domain string) records.DnsRecord {
		rec, err := records.New(domain, recordtype.A, records.NewIP(net.ParseIP("192.0.2.9")),
			300, recordtype.NoError, "8.8.8.8", time.Now(), 1)
		require.NoError(t, err)
		return rec
	}

	recs := []records.DnsRecord{
		mk("a.example.com"),
		mk("b.example.com"),
		mk("c.example.com"),
	}

	out := f.Apply(context.Background(), recs)
	assert.Empty(t, out)
}

func TestFilter_Apply_KeepsGroupBelowThreshold(t *testing.T) {
	fq := &fakeQuery{wildcardZone: "example.com", ip: "192.0.2.9"}
	f := New(fq, 10, zerolog.Nop())

	rec, err := records.New("a.example.com", recordtype.A, records.NewIP(net.ParseIP("192.0.2.9")),
		300, recordtype.NoError, "8.8.8.8", time.Now(), 1)
	require.NoError(t, err)

	out := f.Apply(context.Background(), []records.DnsRecord{rec})
	assert.Len(t, out, 1)
}

func TestFilter_Apply_PassesThroughNonIPValues(t *testing.T) {
	fq := &fakeQuery{wildcardZone: "example.com", ip: "192.0.2.9"}
	f := New(fq, 1, zerolog.Nop())

	rec, err := records.New("example.com", recordtype.MX, records.NewMX(records.MX{Priority: 10, Exchange: "mail.example.com."}),
		300, recordtype.NoError, "8.8.8.8", time.Now(), 1)
	require.NoError(t, err)

	out := f.Apply(context.Background(), []records.DnsRecord{rec})
	assert.Len(t, out, 1)
}
