// Package input provides thin external-collaborator adapters that turn raw
// CLI input (files, CIDR ranges, ASNs) into a domain stream. Validation
// here is a first filter, not a substitute for the engine's own handling
// of malformed targets.
package input

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/cybersapien/dnsrecon/internal/errs"
)

var domainRegex = regexp.MustCompile(
	`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)

// IsValidDomain reports whether s is a syntactically valid DNS name: no
// label over 63 bytes, no name over 253 bytes, each label alphanumeric
// with internal hyphens only.
func IsValidDomain(s string) bool {
	if len(s) > 253 || s == "" {
		return false
	}
	if !domainRegex.MatchString(s) {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if len(label) > 63 {
			return false
		}
	}
	return true
}

// ExpandCIDR enumerates every usable address in a CIDR block (a.b.c.d/n or
// v6/n) as a string, for use as an A/PTR scan target list. The network and
// broadcast addresses of an IPv4 block are included — PTR enumeration
// cares about which addresses exist, not which are host-assignable.
func ExpandCIDR(cidr string) ([]string, error) {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, errs.New(errs.InvalidInput, "input.ExpandCIDR", fmt.Errorf("parse %q: %w", cidr, err))
	}

	var out []string
	ip := network.IP.Mask(network.Mask)
	for network.Contains(ip) {
		out = append(out, ip.String())
		ip = nextIP(ip)
	}
	return out, nil
}

func nextIP(ip net.IP) net.IP {
	next := make(net.IP, len(ip))
	copy(next, ip)
	for i := len(next) - 1; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			break
		}
	}
	return next
}

// ExpandASN maps an ASN string (`AS<digits>` or bare `<digits>`) to its
// announced prefixes. This is an explicit offline stub: the core makes no
// live network call to a routing registry, per the design notes — a real
// deployment would wire this to a WHOIS/RIR client.
func ExpandASN(asn string) ([]string, error) {
	digits := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(asn)), "AS")
	if _, err := strconv.Atoi(digits); err != nil {
		return nil, errs.New(errs.InvalidInput, "input.ExpandASN", fmt.Errorf("malformed ASN %q", asn))
	}
	return nil, errs.New(errs.Other, "input.ExpandASN", fmt.Errorf("ASN expansion requires an external routing-registry lookup, not wired in this build"))
}
