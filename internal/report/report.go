// Package report derives higher-level findings (CDN usage, DNSSEC
// posture, email-authentication configuration, announcing ASN) from
// already-resolved records. It is a thin external collaborator: it reads
// DnsRecord values produced by the core engine and never reaches back
// into the resolver pool or cache itself.
package report

import (
	"strings"

	"github.com/cybersapien/dnsrecon/internal/records"
)

// cdnSignatures maps a substring found in a CNAME/NS target to the CDN or
// hosting provider that owns it. Matching is a static table lookup, not a
// live fingerprint probe.
var cdnSignatures = map[string]string{
	"cloudflare.net":       "Cloudflare",
	"cloudflare.com":       "Cloudflare",
	"akamaiedge.net":       "Akamai",
	"akamai.net":           "Akamai",
	"fastly.net":           "Fastly",
	"cloudfront.net":       "Amazon CloudFront",
	"edgekey.net":          "Akamai",
	"edgesuite.net":        "Akamai",
	"azureedge.net":        "Azure CDN",
	"googleusercontent.com": "Google",
	"netlify.app":          "Netlify",
	"vercel-dns.com":       "Vercel",
}

// CDN reports every provider whose signature matched a CNAME or NS value
// among recs, deduplicated.
func CDN(recs []records.DnsRecord) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range recs {
		if r.Type.String() != "CNAME" && r.Type.String() != "NS" {
			continue
		}
		lower := strings.ToLower(r.Value.RawText())
		for sig, provider := range cdnSignatures {
			if strings.Contains(lower, sig) && !seen[provider] {
				seen[provider] = true
				out = append(out, provider)
			}
		}
	}
	return out
}

// DNSSEC reports presence only: whether DNSKEY, DS, or RRSIG records were
// observed for the zone. It performs no cryptographic chain validation —
// that is explicitly out of scope.
type DNSSEC struct {
	HasDNSKEY bool
	HasDS     bool
	HasRRSIG  bool
}

// Signed reports whether any signal of DNSSEC deployment was observed.
func (d DNSSEC) Signed() bool { return d.HasDNSKEY || d.HasDS || d.HasRRSIG }

// InspectDNSSEC scans recs for the presence-only signals above.
func InspectDNSSEC(recs []records.DnsRecord) DNSSEC {
	var d DNSSEC
	for _, r := range recs {
		switch r.Type.String() {
		case "DNSKEY":
			if _, ok := r.Value.KeyMaterial(); ok {
				d.HasDNSKEY = true
			}
		case "DS":
			d.HasDS = true
		case "RRSIG":
			d.HasRRSIG = true
		}
	}
	return d
}

// EmailSecurity summarizes SPF/DMARC posture as observed in TXT records.
// A domain is considered to have each mechanism only if its TXT record is
// present and shaped correctly; no delivery or alignment is verified.
type EmailSecurity struct {
	HasSPF      bool
	SPFRecord   string
	HasDMARC    bool
	DMARCRecord string
}

// InspectEmailSecurity expects recs to include the TXT records for both
// the apex domain (SPF) and its _dmarc subdomain (DMARC).
func InspectEmailSecurity(recs []records.DnsRecord) EmailSecurity {
	var e EmailSecurity
	for _, r := range recs {
		if r.Type.String() != "TXT" {
			continue
		}
		text := r.Value.RawText()
		switch {
		case strings.HasPrefix(text, "v=spf1"):
			e.HasSPF = true
			e.SPFRecord = text
		case strings.HasPrefix(text, "v=DMARC1") && strings.HasPrefix(strings.ToLower(r.Domain), "_dmarc."):
			e.HasDMARC = true
			e.DMARCRecord = text
		}
	}
	return e
}

// ASNLookup resolves the announcing ASN for an IP address. This is an
// explicit stub: a real deployment wires it to a routing-registry or
// BGP-data client, which this build does not reach out to.
func ASNLookup(ip string) (string, error) {
	return "", errASNUnavailable
}

var errASNUnavailable = &stubError{"ASN lookup requires an external routing-registry client, not wired in this build"}

type stubError struct{ msg string }

func (e *stubError) Error() string { return e.msg }
