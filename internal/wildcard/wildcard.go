// Package wildcard detects wildcard DNS zones by probing random sub-labels
// and filters records whose values match the detected wildcard set.
package wildcard

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/cybersapien/dnsrecon/internal/queryengine"
	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/records"
)

const (
	probeCount       = 5
	probeLabelLen    = 16
	highConfidence   = 0.9
	lowConfidence    = 0.7
	defaultThreshold = 10
)

// BypassAttempt records one diagnostic bypass probe outcome. Bypass probes
// never affect filtering — they exist for operator visibility only.
type BypassAttempt struct {
	Label   string
	Success bool // true when the test label did NOT resolve
}

// Analysis is the detection result for one base zone, cached for the
// lifetime of the Filter.
type Analysis struct {
	BaseDomain     string
	HasWildcard    bool
	WildcardIPs    map[string]struct{}
	ProbeRecords   []string
	BypassAttempts []BypassAttempt
	Confidence     float64
}

// Filter detects and removes wildcard-zone noise from a record stream.
type Filter struct {
	query     queryengine.DnsQuery
	threshold int
	log       zerolog.Logger

	// cache holds one Analysis per base zone for the lifetime of the
	// Filter — go-cache's NoExpiration entries, so lookups never age out
	// mid-run; only constructing a fresh Filter resets it.
	cache *gocache.Cache
}

// New builds a Filter. threshold <= 0 uses the default of 10.
func New(query queryengine.DnsQuery, threshold int, log zerolog.Logger) *Filter {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Filter{
		query:     query,
		threshold: threshold,
		log:       log,
		cache:     gocache.New(gocache.NoExpiration, 0),
	}
}

// Analyze returns the cached Analysis for baseDomain, detecting it on first
// use. baseDomain should already be the effective base zone (e.g. the
// registrable domain), not a full hostname.
func (f *Filter) Analyze(ctx context.Context, baseDomain string) Analysis {
	baseDomain = strings.ToLower(strings.TrimSuffix(baseDomain, "."))

	if cached, ok := f.cache.Get(baseDomain); ok {
		return cached.(Analysis)
	}

	a := f.detect(ctx, baseDomain)
	f.cache.SetDefault(baseDomain, a)

	if a.HasWildcard {
		f.log.Debug().Str("zone", baseDomain).Float64("confidence", a.Confidence).
			Msg("wildcard zone detected")
	}
	return a
}

// detect issues 5 independent A queries against random sub-labels of
// baseDomain and classifies the zone per the documented thresholds.
func (f *Filter) detect(ctx context.Context, baseDomain string) Analysis {
	a := Analysis{BaseDomain: baseDomain, WildcardIPs: make(map[string]struct{})}

	counts := make(map[string]int)
	var probes []string

	for i := 0; i < probeCount; i++ {
		label := randomLabel(probeLabelLen)
		probeDomain := label + "." + baseDomain
		recs, err := f.query.Query(ctx, probeDomain, recordtype.A)
		if err != nil || len(recs) == 0 {
			continue
		}
		for _, r := range recs {
			ip, ok := r.Value.IP()
			if !ok {
				continue
			}
			s := ip.String()
			counts[s]++
			probes = append(probes, s)
		}
	}
	a.ProbeRecords = probes

	if len(counts) == 1 {
		var onlyIP string
		var onlyCount int
		for ip, c := range counts {
			onlyIP = ip
			onlyCount = c
		}
		a.WildcardIPs[onlyIP] = struct{}{}
		a.HasWildcard = true
		if onlyCount >= 3 {
			a.Confidence = highConfidence
		} else {
			a.Confidence = lowConfidence
		}
	}

	a.BypassAttempts = f.runBypassProbes(ctx, baseDomain)
	return a
}

// runBypassProbes issues diagnostic-only probes with malformed labels:
// disallowed characters, a 100-byte label, and an embedded underscore. An
// attempt succeeds when the test label does NOT resolve.
func (f *Filter) runBypassProbes(ctx context.Context, baseDomain string) []BypassAttempt {
	labels := []string{
		"bad!char-" + randomLabel(6),
		strings.Repeat("x", 100),
		"embedded_underscore-" + randomLabel(6),
	}
	attempts := make([]BypassAttempt, 0, len(labels))
	for _, label := range labels {
		probeDomain := label + "." + baseDomain
		recs, err := f.query.Query(ctx, probeDomain, recordtype.A)
		attempts = append(attempts, BypassAttempt{
			Label:   label,
			Success: err != nil || len(recs) == 0,
		})
	}
	return attempts
}

// ZoneOf walks the labels of domain from the right and returns the first
// strict suffix for which the filter has detected (or discovers on demand)
// a wildcard zone, plus whether any such suffix was found. The walk never
// probes above the registrable domain (effective TLD+1, per
// golang.org/x/net/publicsuffix) — there is no zone to own above it, and
// probing a public suffix directly would just measure the registry's own
// wildcard policy, not the target's.
func (f *Filter) ZoneOf(ctx context.Context, domain string) (Analysis, bool) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))

	registrable, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		registrable = domain
	}

	labels := strings.Split(domain, ".")
	floor := strings.Count(registrable, ".") + 1 // label count of the registrable domain

	for i := len(labels) - floor; i >= 1; i-- {
		suffix := strings.Join(labels[i:], ".")
		a := f.Analyze(ctx, suffix)
		if a.HasWildcard {
			return a, true
		}
	}
	return Analysis{}, false
}

// group is one effective-value bucket of records sharing a zone.
type group struct {
	zone     string
	value    string
	analysis *Analysis // the zone's wildcard analysis; nil if no wildcard zone was found
	records  []records.DnsRecord
}

// Apply filters recs: records whose value belongs to a detected wildcard
// zone's wildcard_ips, in a group of size >= threshold, are discarded.
// Non-IP values pass through unfiltered.
func (f *Filter) Apply(ctx context.Context, recs []records.DnsRecord) []records.DnsRecord {
	groupOf := make([]string, len(recs))
	groups := make(map[string]*group)

	for i, r := range recs {
		if _, isIP := r.Value.IP(); !isIP {
			continue
		}
		zoneAnalysis, found := f.ZoneOf(ctx, r.Domain)
		zone := r.Domain
		var zoneA *Analysis
		if found {
			zone = zoneAnalysis.BaseDomain
			zoneA = &zoneAnalysis
		}
		key := zone + "|" + r.Value.RawText()
		groupOf[i] = key
		g, ok := groups[key]
		if !ok {
			g = &group{zone: zone, value: r.Value.RawText(), analysis: zoneA}
			groups[key] = g
		}
		g.records = append(g.records, r)
	}

	discardKey := make(map[string]bool)
	for key, g := range groups {
		if len(g.records) < f.threshold {
			continue
		}
		a := g.analysis
		if a == nil || a.Confidence < lowConfidence {
			continue
		}
		if _, inSet := a.WildcardIPs[g.value]; inSet {
			discardKey[key] = true
		}
	}

	if len(discardKey) == 0 {
		return recs
	}

	out := make([]records.DnsRecord, 0, len(recs))
	for i, r := range recs {
		if key := groupOf[i]; key != "" && discardKey[key] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func randomLabel(n int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			b[i] = charset[0]
			continue
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
