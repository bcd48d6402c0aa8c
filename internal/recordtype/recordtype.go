// Package recordtype defines the closed enumeration of DNS query classes
// the engine accepts, and the response-code enumeration.
package recordtype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// Type is a closed enumeration of the record types the engine will query
// for and decode. Unsupported values must be rejected at request time;
// silently substituting TypeA is forbidden.
type Type uint16

const (
	A      Type = Type(dns.TypeA)
	AAAA   Type = Type(dns.TypeAAAA)
	CNAME  Type = Type(dns.TypeCNAME)
	MX     Type = Type(dns.TypeMX)
	TXT    Type = Type(dns.TypeTXT)
	NS     Type = Type(dns.TypeNS)
	SOA    Type = Type(dns.TypeSOA)
	PTR    Type = Type(dns.TypePTR)
	SRV    Type = Type(dns.TypeSRV)
	CAA    Type = Type(dns.TypeCAA)
	DNAME  Type = Type(dns.TypeDNAME)
	DNSKEY Type = Type(dns.TypeDNSKEY)
	DS     Type = Type(dns.TypeDS)
	HINFO  Type = Type(dns.TypeHINFO)
	HTTPS  Type = Type(dns.TypeHTTPS)
	KEY    Type = Type(dns.TypeKEY)
	NAPTR  Type = Type(dns.TypeNAPTR)
	NSEC   Type = Type(dns.TypeNSEC)
	NSEC3  Type = Type(dns.TypeNSEC3)
	OPT    Type = Type(dns.TypeOPT)
	RRSIG  Type = Type(dns.TypeRRSIG)
	SSHFP  Type = Type(dns.TypeSSHFP)
	SVCB   Type = Type(dns.TypeSVCB)
	TLSA   Type = Type(dns.TypeTLSA)
	URI    Type = Type(dns.TypeURI)
)

// supported lists every Type this engine will accept, used to reject
// unknown requested types instead of silently mapping them to A.
var supported = map[Type]string{
	A: "A", AAAA: "AAAA", CNAME: "CNAME", MX: "MX", TXT: "TXT", NS: "NS",
	SOA: "SOA", PTR: "PTR", SRV: "SRV", CAA: "CAA", DNAME: "DNAME",
	DNSKEY: "DNSKEY", DS: "DS", HINFO: "HINFO", HTTPS: "HTTPS", KEY: "KEY",
	NAPTR: "NAPTR", NSEC: "NSEC", NSEC3: "NSEC3", OPT: "OPT", RRSIG: "RRSIG",
	SSHFP: "SSHFP", SVCB: "SVCB", TLSA: "TLSA", URI: "URI",
}

// String returns the canonical mnemonic for t, or a numeric fallback for
// values outside the supported set (still distinguishable, never "A").
func (t Type) String() string {
	if s, ok := supported[t]; ok {
		return s
	}
	return fmt.Sprintf("TYPE%d", uint16(t))
}

// Parse maps a case-insensitive mnemonic (or bare numeric type) to a Type.
// It returns an error rather than defaulting to A when the name is unknown.
func Parse(name string) (Type, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for t, s := range supported {
		if s == upper {
			return t, nil
		}
	}
	if n, err := strconv.ParseUint(upper, 10, 16); err == nil {
		if _, ok := supported[Type(n)]; ok {
			return Type(n), nil
		}
	}
	return 0, fmt.Errorf("recordtype: unsupported or unknown record type %q", name)
}

// ResponseCode is a closed enumeration of DNS response codes the engine
// distinguishes; everything else collapses to Other.
type ResponseCode int

const (
	NoError ResponseCode = iota
	ServFail
	NxDomain
	Refused
	FormErr
	NotImp
	OtherRcode
)

func (r ResponseCode) String() string {
	switch r {
	case NoError:
		return "NOERROR"
	case ServFail:
		return "SERVFAIL"
	case NxDomain:
		return "NXDOMAIN"
	case Refused:
		return "REFUSED"
	case FormErr:
		return "FORMERR"
	case NotImp:
		return "NOTIMP"
	default:
		return "OTHER"
	}
}

// FromDNSRcode maps a miekg/dns numeric Rcode into our closed enumeration.
func FromDNSRcode(rcode int) ResponseCode {
	switch rcode {
	case dns.RcodeSuccess:
		return NoError
	case dns.RcodeServerFailure:
		return ServFail
	case dns.RcodeNameError:
		return NxDomain
	case dns.RcodeRefused:
		return Refused
	case dns.RcodeFormatError:
		return FormErr
	case dns.RcodeNotImplemented:
		return NotImp
	default:
		return OtherRcode
	}
}
