package records

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cybersapien/dnsrecon/internal/recordtype"
)

// DnsRecord is created exactly once per decoded resource by the Query
// Engine and is immutable thereafter.
type DnsRecord struct {
	Domain       string
	Type         recordtype.Type
	Value        Value
	TTL          uint32
	ResponseCode recordtype.ResponseCode
	Resolver     string
	Timestamp    time.Time
	QueryTimeMs  int64
}

// New constructs a DnsRecord, rejecting a value whose tag disagrees with
// rt — the spec's type/value agreement invariant, enforced here rather
// than left to callers.
func New(domain string, rt recordtype.Type, value Value, ttl uint32,
	rcode recordtype.ResponseCode, resolver string, ts time.Time, queryTimeMs int64) (DnsRecord, error) {
	if !value.AgreesWith(rt) {
		return DnsRecord{}, fmt.Errorf("records: value tag disagrees with record type %s", rt)
	}
	return DnsRecord{
		Domain:       domain,
		Type:         rt,
		Value:        value,
		TTL:          ttl,
		ResponseCode: rcode,
		Resolver:     resolver,
		Timestamp:    ts,
		QueryTimeMs:  queryTimeMs,
	}, nil
}

// wireRecord is the full-fidelity internal encoding used by MarshalJSON:
// every field, with Value encoded via its own tagged MarshalJSON so the
// structured payload (MX, SRV, SOA, ...) survives the round trip intact.
type wireRecord struct {
	Domain       string                  `json:"domain"`
	Type         recordtype.Type         `json:"type"`
	Value        Value                   `json:"value"`
	TTL          uint32                  `json:"ttl"`
	ResponseCode recordtype.ResponseCode `json:"response_code"`
	Resolver     string                  `json:"resolver"`
	Timestamp    time.Time               `json:"timestamp"`
	QueryTimeMs  int64                   `json:"query_time_ms"`
}

// MarshalJSON encodes every field of DnsRecord, including the full tagged
// Value payload, so decoding the result yields an equal record (testable
// property 11). This is the internal/persistence encoding; see ToOutputJSON
// for the flattened §6 human/sink output format.
func (r DnsRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecord{
		Domain:       r.Domain,
		Type:         r.Type,
		Value:        r.Value,
		TTL:          r.TTL,
		ResponseCode: r.ResponseCode,
		Resolver:     r.Resolver,
		Timestamp:    r.Timestamp,
		QueryTimeMs:  r.QueryTimeMs,
	})
}

// UnmarshalJSON restores a DnsRecord from its full-fidelity encoding.
func (r *DnsRecord) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Domain = w.Domain
	r.Type = w.Type
	r.Value = w.Value
	r.TTL = w.TTL
	r.ResponseCode = w.ResponseCode
	r.Resolver = w.Resolver
	r.Timestamp = w.Timestamp
	r.QueryTimeMs = w.QueryTimeMs
	return nil
}

// OutputJSON is the flattened §6 output-format wire shape: one JSON object
// per record, field names stable for compatibility, timestamp as RFC 3339,
// value rendered as text. This is what the Output Writer and the Document/
// Collection/Wide-Column sinks emit.
type OutputJSON struct {
	Timestamp   string `json:"timestamp"`
	Domain      string `json:"domain"`
	RecordType  string `json:"record_type"`
	Value       string `json:"value"`
	Resolver    string `json:"resolver"`
	TTL         uint32 `json:"ttl"`
	RCode       string `json:"response_code"`
	QueryTimeMs int64  `json:"query_time_ms"`
}

// ToOutputJSON renders r into the flattened wire shape described above.
func (r DnsRecord) ToOutputJSON() OutputJSON {
	return OutputJSON{
		Timestamp:   r.Timestamp.UTC().Format(time.RFC3339),
		Domain:      r.Domain,
		RecordType:  r.Type.String(),
		Value:       r.Value.RawText(),
		Resolver:    r.Resolver,
		TTL:         r.TTL,
		RCode:       r.ResponseCode.String(),
		QueryTimeMs: r.QueryTimeMs,
	}
}
