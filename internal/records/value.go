// Package records defines the uniform tagged-value representation of a
// resolved DNS record and its metadata.
package records

import (
	"fmt"
	"net"
	"strings"

	"github.com/cybersapien/dnsrecon/internal/recordtype"
)

// MX is the priority/exchange payload of an MX record.
type MX struct {
	Priority uint16
	Exchange string
}

// SRV is the priority/weight/port/target payload of an SRV record.
type SRV struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}

// SOA is the seven-field start-of-authority payload.
type SOA struct {
	Mname   string
	Rname   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// CAA is the flags/tag/value payload of a CAA record.
type CAA struct {
	Flags uint8
	Tag   string
	Value string
}

// KeyMaterial covers the byte-level fields shared by DNSKEY, DS, SSHFP and
// TLSA records — each decoder fills the subset that applies to its type.
type KeyMaterial struct {
	Algorithm   uint8
	Protocol    uint8
	Flags       uint16
	KeyTag      uint16
	DigestType  uint8
	FPType      uint8
	MatchType   uint8
	SelectorInt uint8
	UsageInt    uint8
	Data        string // hex or base64 payload, as rendered by the decoder
}

// NAPTR is the naming-authority-pointer payload.
type NAPTR struct {
	Order       uint16
	Preference  uint16
	Flags       string
	Service     string
	Regexp      string
	Replacement string
}

// HINFO is the host-info payload.
type HINFO struct {
	CPU string
	OS  string
}

// SVCParam is one key/value parameter of an HTTPS/SVCB record.
type SVCParam struct {
	Key   string
	Value string
}

// SVCB is the shared payload of HTTPS and SVCB records.
type SVCB struct {
	Priority uint16
	Target   string
	Params   []SVCParam
}

// valueTag identifies which field of Value is populated; it must always
// agree with the owning DnsRecord's Type (enforced by the New* constructors).
type valueTag int

const (
	tagIP valueTag = iota
	tagName
	tagText
	tagMX
	tagSRV
	tagSOA
	tagCAA
	tagKeyMaterial
	tagNAPTR
	tagHINFO
	tagSVCB
	tagURI
	tagOther
)

// Value is a tagged union over the per-type structured DNS payloads. Zero
// Value is not meaningful; always construct via one of the New* functions.
type Value struct {
	tag   valueTag
	ip    net.IP
	name  string
	text  string
	mx    MX
	srv   SRV
	soa   SOA
	caa   CAA
	key   KeyMaterial
	naptr NAPTR
	hinfo HINFO
	svcb  SVCB
	uri   string
	other string
}

func NewIP(ip net.IP) Value              { return Value{tag: tagIP, ip: ip} }
func NewName(name string) Value          { return Value{tag: tagName, name: name} }
func NewText(text string) Value          { return Value{tag: tagText, text: text} }
func NewMX(v MX) Value                   { return Value{tag: tagMX, mx: v} }
func NewSRV(v SRV) Value                 { return Value{tag: tagSRV, srv: v} }
func NewSOA(v SOA) Value                 { return Value{tag: tagSOA, soa: v} }
func NewCAA(v CAA) Value                 { return Value{tag: tagCAA, caa: v} }
func NewKeyMaterial(v KeyMaterial) Value { return Value{tag: tagKeyMaterial, key: v} }
func NewNAPTR(v NAPTR) Value             { return Value{tag: tagNAPTR, naptr: v} }
func NewHINFO(v HINFO) Value             { return Value{tag: tagHINFO, hinfo: v} }
func NewSVCB(v SVCB) Value               { return Value{tag: tagSVCB, svcb: v} }
func NewURI(uri string) Value            { return Value{tag: tagURI, uri: uri} }
func NewOther(text string) Value         { return Value{tag: tagOther, other: text} }

// IP returns the IP payload and whether this Value actually carries one.
func (v Value) IP() (net.IP, bool) { return v.ip, v.tag == tagIP }

// MX returns the MX payload and whether this Value actually carries one.
func (v Value) MX() (MX, bool) { return v.mx, v.tag == tagMX }

// SRV returns the SRV payload and whether this Value actually carries one.
func (v Value) SRV() (SRV, bool) { return v.srv, v.tag == tagSRV }

// SOA returns the SOA payload and whether this Value actually carries one.
func (v Value) SOA() (SOA, bool) { return v.soa, v.tag == tagSOA }

// CAA returns the CAA payload and whether this Value actually carries one.
func (v Value) CAA() (CAA, bool) { return v.caa, v.tag == tagCAA }

// KeyMaterial returns the byte-level payload, if this Value carries one.
func (v Value) KeyMaterial() (KeyMaterial, bool) { return v.key, v.tag == tagKeyMaterial }

// SVCB returns the HTTPS/SVCB payload, if this Value carries one.
func (v Value) SVCB() (SVCB, bool) { return v.svcb, v.tag == tagSVCB }

// RawText renders the value for any consumer that wants a single string
// (the Output Writer, every Sink Exporter) without needing its own type
// switch — this is the one seam thin adapters are allowed to depend on.
func (v Value) RawText() string {
	switch v.tag {
	case tagIP:
		return v.ip.String()
	case tagName:
		return v.name
	case tagText:
		return v.text
	case tagMX:
		return fmt.Sprintf("%d %s", v.mx.Priority, v.mx.Exchange)
	case tagSRV:
		return fmt.Sprintf("%d %d %d %s", v.srv.Priority, v.srv.Weight, v.srv.Port, v.srv.Target)
	case tagSOA:
		return fmt.Sprintf("%s %s %d %d %d %d %d", v.soa.Mname, v.soa.Rname,
			v.soa.Serial, v.soa.Refresh, v.soa.Retry, v.soa.Expire, v.soa.Minimum)
	case tagCAA:
		return fmt.Sprintf("%d %s %q", v.caa.Flags, v.caa.Tag, v.caa.Value)
	case tagKeyMaterial:
		return v.key.Data
	case tagNAPTR:
		return fmt.Sprintf("%d %d %q %q %q %s", v.naptr.Order, v.naptr.Preference,
			v.naptr.Flags, v.naptr.Service, v.naptr.Regexp, v.naptr.Replacement)
	case tagHINFO:
		return fmt.Sprintf("%q %q", v.hinfo.CPU, v.hinfo.OS)
	case tagSVCB:
		params := make([]string, 0, len(v.svcb.Params))
		for _, p := range v.svcb.Params {
			params = append(params, p.Key+"="+p.Value)
		}
		return fmt.Sprintf("%d %s %s", v.svcb.Priority, v.svcb.Target, strings.Join(params, " "))
	case tagURI:
		return v.uri
	default:
		return v.other
	}
}

// AgreesWith reports whether the tag of v is the one expected for rt,
// enforcing the DnsRecord invariant that type and value tag agree.
func (v Value) AgreesWith(rt recordtype.Type) bool {
	switch rt {
	case recordtype.A, recordtype.AAAA:
		return v.tag == tagIP || v.tag == tagOther
	case recordtype.CNAME, recordtype.NS, recordtype.PTR, recordtype.DNAME:
		return v.tag == tagName || v.tag == tagOther
	case recordtype.TXT:
		return v.tag == tagText || v.tag == tagOther
	case recordtype.MX:
		return v.tag == tagMX || v.tag == tagOther
	case recordtype.SRV:
		return v.tag == tagSRV || v.tag == tagOther
	case recordtype.SOA:
		return v.tag == tagSOA || v.tag == tagOther
	case recordtype.CAA:
		return v.tag == tagCAA || v.tag == tagOther
	case recordtype.DNSKEY, recordtype.DS, recordtype.SSHFP, recordtype.TLSA, recordtype.KEY:
		return v.tag == tagKeyMaterial || v.tag == tagOther
	case recordtype.NAPTR:
		return v.tag == tagNAPTR || v.tag == tagOther
	case recordtype.HINFO:
		return v.tag == tagHINFO || v.tag == tagOther
	case recordtype.HTTPS, recordtype.SVCB:
		return v.tag == tagSVCB || v.tag == tagOther
	case recordtype.URI:
		return v.tag == tagURI || v.tag == tagOther
	default:
		return v.tag == tagOther
	}
}
