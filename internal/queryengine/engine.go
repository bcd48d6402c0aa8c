package queryengine

import (
	"context"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"

	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/records"
	"github.com/cybersapien/dnsrecon/internal/resolverpool"
)

// Engine wraps a resolver pool, decoding each resource record in a reply
// into the uniform records.DnsRecord, stamping query time, resolver
// identity and completion timestamp.
type Engine struct {
	pool *resolverpool.Pool
	log  zerolog.Logger
}

// New builds an Engine around pool.
func New(pool *resolverpool.Pool, log zerolog.Logger) *Engine {
	return &Engine{pool: pool, log: log}
}

var _ DnsQuery = (*Engine)(nil)

// Query issues one query through the resolver pool and decodes the reply.
// If the answer section is empty but the reply is NoError, a single
// synthetic record is emitted (value Other("no records"), ttl 0) so every
// successful query yields at least one record downstream.
func (e *Engine) Query(ctx context.Context, domain string, rt recordtype.Type) ([]records.DnsRecord, error) {
	start := time.Now()
	result, err := e.pool.Query(ctx, domain, uint16(rt))
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return nil, err
	}

	rcode := recordtype.FromDNSRcode(result.Msg.Rcode)
	ts := time.Now()

	if len(result.Msg.Answer) == 0 {
		if rcode != recordtype.NoError {
			return nil, nil
		}
		rec, decodeErr := records.New(domain, rt, records.NewOther("no records"), 0, rcode, result.ResolverID, ts, elapsed)
		if decodeErr != nil {
			return nil, decodeErr
		}
		return []records.DnsRecord{rec}, nil
	}

	out := make([]records.DnsRecord, 0, len(result.Msg.Answer))
	for _, rr := range result.Msg.Answer {
		value := decodeRR(rr)
		rec, decodeErr := records.New(domain, rt, value, rr.Header().Ttl, rcode, result.ResolverID, ts, elapsed)
		if decodeErr != nil {
			// A decoder producing a tag that disagrees with rt is a bug in
			// this engine, not a malformed-reply condition; fall back to
			// Other rather than dropping the answer.
			rec, decodeErr = records.New(domain, rt, records.NewOther(rr.String()), rr.Header().Ttl, rcode, result.ResolverID, ts, elapsed)
			if decodeErr != nil {
				continue
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// decodeRR decodes one resource record into a records.Value. Unknown or
// partially supported types fall back to Other(pretty-printed form).
func decodeRR(rr dns.RR) records.Value {
	switch r := rr.(type) {
	case *dns.A:
		return records.NewIP(r.A)
	case *dns.AAAA:
		return records.NewIP(r.AAAA)
	case *dns.CNAME:
		return records.NewName(r.Target)
	case *dns.NS:
		return records.NewName(r.Ns)
	case *dns.PTR:
		return records.NewName(r.Ptr)
	case *dns.DNAME:
		return records.NewName(r.Target)
	case *dns.TXT:
		text := ""
		for i, s := range r.Txt {
			if i > 0 {
				text += " "
			}
			text += s
		}
		return records.NewText(text)
	case *dns.MX:
		return records.NewMX(records.MX{Priority: r.Preference, Exchange: r.Mx})
	case *dns.SRV:
		return records.NewSRV(records.SRV{Priority: r.Priority, Weight: r.Weight, Port: r.Port, Target: r.Target})
	case *dns.SOA:
		return records.NewSOA(records.SOA{
			Mname: r.Ns, Rname: r.Mbox, Serial: r.Serial,
			Refresh: r.Refresh, Retry: r.Retry, Expire: r.Expire, Minimum: r.Minttl,
		})
	case *dns.CAA:
		return records.NewCAA(records.CAA{Flags: r.Flag, Tag: r.Tag, Value: r.Value})
	case *dns.DNSKEY:
		return records.NewKeyMaterial(records.KeyMaterial{
			Flags: r.Flags, Protocol: r.Protocol, Algorithm: r.Algorithm, Data: r.PublicKey,
		})
	case *dns.DS:
		return records.NewKeyMaterial(records.KeyMaterial{
			KeyTag: r.KeyTag, Algorithm: r.Algorithm, DigestType: r.DigestType, Data: r.Digest,
		})
	case *dns.SSHFP:
		return records.NewKeyMaterial(records.KeyMaterial{
			Algorithm: r.Algorithm, FPType: r.Type, Data: r.FingerPrint,
		})
	case *dns.TLSA:
		return records.NewKeyMaterial(records.KeyMaterial{
			UsageInt: r.Usage, SelectorInt: r.Selector, DigestType: r.MatchingType, Data: r.Certificate,
		})
	case *dns.KEY:
		return records.NewKeyMaterial(records.KeyMaterial{
			Flags: r.Flags, Protocol: r.Protocol, Algorithm: r.Algorithm, Data: r.PublicKey,
		})
	case *dns.NAPTR:
		return records.NewNAPTR(records.NAPTR{
			Order: r.Order, Preference: r.Preference, Flags: r.Flags,
			Service: r.Service, Regexp: r.Regexp, Replacement: r.Replacement,
		})
	case *dns.HINFO:
		return records.NewHINFO(records.HINFO{CPU: r.Cpu, OS: r.Os})
	case *dns.HTTPS:
		return records.NewSVCB(decodeSVCB(r.SVCB))
	case *dns.SVCB:
		return records.NewSVCB(decodeSVCB(*r))
	case *dns.URI:
		return records.NewURI(r.Target)
	default:
		return records.NewOther(rr.String())
	}
}

func decodeSVCB(r dns.SVCB) records.SVCB {
	params := make([]records.SVCParam, 0, len(r.Value))
	for _, kv := range r.Value {
		params = append(params, records.SVCParam{Key: kv.Key().String(), Value: kv.String()})
	}
	return records.SVCB{Priority: r.Priority, Target: r.Target, Params: params}
}
