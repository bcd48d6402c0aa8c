package records

import (
	"encoding/json"
	"net"
)

// valueWire is the full-fidelity internal encoding of a Value: every
// payload field plus the tag that selects it. This is distinct from the
// flattened §6 output-wire format (see ToOutputJSON) — it exists so that
// encoding a DnsRecord and re-decoding it yields an equal record for every
// RecordValue variant (testable property 11), not just its RawText().
type valueWire struct {
	Tag   valueTag    `json:"tag"`
	IP    string      `json:"ip,omitempty"`
	Name  string      `json:"name,omitempty"`
	Text  string      `json:"text,omitempty"`
	MX    *MX         `json:"mx,omitempty"`
	SRV   *SRV        `json:"srv,omitempty"`
	SOA   *SOA        `json:"soa,omitempty"`
	CAA   *CAA        `json:"caa,omitempty"`
	Key   *KeyMaterial `json:"key,omitempty"`
	NAPTR *NAPTR      `json:"naptr,omitempty"`
	HINFO *HINFO      `json:"hinfo,omitempty"`
	SVCB  *SVCB       `json:"svcb,omitempty"`
	URI   string      `json:"uri,omitempty"`
	Other string      `json:"other,omitempty"`
}

// MarshalJSON encodes the full tagged payload so Value round-trips exactly.
func (v Value) MarshalJSON() ([]byte, error) {
	w := valueWire{Tag: v.tag}
	switch v.tag {
	case tagIP:
		w.IP = v.ip.String()
	case tagName:
		w.Name = v.name
	case tagText:
		w.Text = v.text
	case tagMX:
		w.MX = &v.mx
	case tagSRV:
		w.SRV = &v.srv
	case tagSOA:
		w.SOA = &v.soa
	case tagCAA:
		w.CAA = &v.caa
	case tagKeyMaterial:
		w.Key = &v.key
	case tagNAPTR:
		w.NAPTR = &v.naptr
	case tagHINFO:
		w.HINFO = &v.hinfo
	case tagSVCB:
		w.SVCB = &v.svcb
	case tagURI:
		w.URI = v.uri
	default:
		w.Other = v.other
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores a Value from its full-fidelity encoding.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w valueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	nv := Value{tag: w.Tag}
	switch w.Tag {
	case tagIP:
		nv.ip = net.ParseIP(w.IP)
	case tagName:
		nv.name = w.Name
	case tagText:
		nv.text = w.Text
	case tagMX:
		if w.MX != nil {
			nv.mx = *w.MX
		}
	case tagSRV:
		if w.SRV != nil {
			nv.srv = *w.SRV
		}
	case tagSOA:
		if w.SOA != nil {
			nv.soa = *w.SOA
		}
	case tagCAA:
		if w.CAA != nil {
			nv.caa = *w.CAA
		}
	case tagKeyMaterial:
		if w.Key != nil {
			nv.key = *w.Key
		}
	case tagNAPTR:
		if w.NAPTR != nil {
			nv.naptr = *w.NAPTR
		}
	case tagHINFO:
		if w.HINFO != nil {
			nv.hinfo = *w.HINFO
		}
	case tagSVCB:
		if w.SVCB != nil {
			nv.svcb = *w.SVCB
		}
	case tagURI:
		nv.uri = w.URI
	default:
		nv.other = w.Other
	}
	*v = nv
	return nil
}
