package adns

import "github.com/nandub/adns/internal/dns"

// RRType identifies what shape of answer a query wants, distinguishing
// the raw wire records (spec §4.3's "Raw" types, which hand back exactly
// what the server sent) from "Cooked" types (NS/PTR/MX/SOA/RP/ADDR). Of
// the cooked types only NS and MX follow up with child queries that
// resolve each referenced host name to addresses; PTR, SOA and RP are
// answered like their raw counterparts, and ADDR queries A records only.
type RRType int

const (
	RRTypeA RRType = iota
	RRTypeAAAA
	RRTypeNSRaw
	RRTypeCNAME
	RRTypePTRRaw
	RRTypeMXRaw
	RRTypeTXT
	RRTypeHINFO
	RRTypeSOARaw
	RRTypeRPRaw

	// Cooked types. Only NS and MX also resolve the names they
	// reference via child queries (needsChildren in dispatch.go).
	RRTypeNS
	RRTypePTR
	RRTypeMX
	RRTypeSOA
	RRTypeRP

	// RRTypeADDR is the general-address pseudo-type. It queries A
	// records only; AAAA records are not requested for it.
	RRTypeADDR
)

// typeDescriptor is the Go analogue of adns's typeinfo: one per RRType,
// carrying its mnemonic, the wire type to query for, and whether the
// type is cooked (see IsCooked).
type typeDescriptor struct {
	name     string
	wireType dns.RecordType
	cooked   bool
}

var typeRegistry = map[RRType]typeDescriptor{
	RRTypeA:      {"A", dns.TypeA, false},
	RRTypeAAAA:   {"AAAA", dns.TypeAAAA, false},
	RRTypeNSRaw:  {"NS-raw", dns.TypeNS, false},
	RRTypeCNAME:  {"CNAME", dns.TypeCNAME, false},
	RRTypePTRRaw: {"PTR-raw", dns.TypePTR, false},
	RRTypeMXRaw:  {"MX-raw", dns.TypeMX, false},
	RRTypeTXT:    {"TXT", dns.TypeTXT, false},
	RRTypeHINFO:  {"HINFO", dns.TypeHINFO, false},
	RRTypeSOARaw: {"SOA-raw", dns.TypeSOA, false},
	RRTypeRPRaw:  {"RP-raw", dns.TypeRP, false},

	RRTypeNS:  {"NS", dns.TypeNS, true},
	RRTypePTR: {"PTR", dns.TypePTR, true},
	RRTypeMX:  {"MX", dns.TypeMX, true},
	RRTypeSOA: {"SOA", dns.TypeSOA, true},
	RRTypeRP:  {"RP", dns.TypeRP, true},

	RRTypeADDR: {"ADDR", dns.TypeA, true},
}

func (t RRType) descriptor() typeDescriptor {
	d, ok := typeRegistry[t]
	if !ok {
		return typeDescriptor{name: "unknown", wireType: dns.TypeA}
	}
	return d
}

// String returns the type's mnemonic name, e.g. "MX" or "PTR-raw".
func (t RRType) String() string { return t.descriptor().name }

// WireType returns the DNS wire-format RecordType this RRType queries
// for. Cooked and raw variants of the same RR query the same wire type;
// they differ in what adns does with the answer afterward.
func (t RRType) WireType() dns.RecordType { return t.descriptor().wireType }

// IsCooked reports whether this is a cooked type (NS, PTR, MX, SOA, RP,
// ADDR). Whether child queries follow is decided by needsChildren, which
// answers yes for NS and MX only.
func (t RRType) IsCooked() bool { return t.descriptor().cooked }
