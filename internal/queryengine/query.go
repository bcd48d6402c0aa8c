// Package queryengine wraps the resolver pool, decoding each reply into
// the uniform DnsRecord model and stamping timing/resolver metadata.
package queryengine

import (
	"context"

	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/records"
)

// DnsQuery is the capability trait every query source satisfies: the real
// query engine, the cached wrapper, and test doubles. Composition is by
// value (the cached wrapper holds an inner DnsQuery), never by embedding a
// concrete type.
type DnsQuery interface {
	Query(ctx context.Context, domain string, rt recordtype.Type) ([]records.DnsRecord, error)
}
