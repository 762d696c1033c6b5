package dns

import (
	"encoding/binary"
	"fmt"

	"github.com/nandub/adns/internal/helpers"
)

// RRHeader holds the fixed-format fields common to every resource record
// (RFC 1035 Section 4.1.3): owner name, class, and TTL. Type is carried by
// the concrete Record implementation rather than duplicated here, since
// every Record already knows its own wire type.
type RRHeader struct {
	Name  string
	Class uint16
	TTL   uint32
}

// NewRRHeader builds an RRHeader with the given class (almost always
// ClassIN, the only class this library speaks).
func NewRRHeader(name string, class RecordClass, ttl uint32) RRHeader {
	return RRHeader{Name: name, Class: uint16(class), TTL: ttl}
}

// Record is a parsed DNS resource record. Each wire type (A, NS, MX, ...)
// has its own concrete implementation rather than a single struct with an
// `any` payload field, so a caller can type-switch on the concrete type to
// reach typed fields without an assertion on untyped data.
type Record interface {
	Type() RecordType
	Header() RRHeader
	SetHeader(RRHeader)
	MarshalRData() ([]byte, error)
}

// withHeader gives every concrete Record its RRHeader storage and the
// Header/SetHeader pair ParseRecord needs, by embedding rather than each
// record type repeating the same three lines.
type withHeader struct {
	h RRHeader
}

func (w withHeader) Header() RRHeader     { return w.h }
func (w *withHeader) SetHeader(h RRHeader) { w.h = h }

// Marshal serializes a resource record to wire format: owner name, type,
// class, TTL, RDLENGTH, then RDATA (RFC 1035 Section 4.1.3). It does not
// perform name compression.
func Marshal(rr Record) ([]byte, error) {
	nameWire, err := EncodeName(rr.Header().Name)
	if err != nil {
		return nil, err
	}
	rdata, err := rr.MarshalRData()
	if err != nil {
		return nil, err
	}
	if len(rdata) > 0xFFFF {
		return nil, fmt.Errorf("%w: RDATA too long (%d > 65535)", ErrDNSError, len(rdata))
	}

	out := make([]byte, 0, len(nameWire)+10+len(rdata))
	out = append(out, nameWire...)
	fixed := make([]byte, 10)
	binary.BigEndian.PutUint16(fixed[0:2], uint16(rr.Type()))
	binary.BigEndian.PutUint16(fixed[2:4], rr.Header().Class)
	binary.BigEndian.PutUint32(fixed[4:8], rr.Header().TTL)
	binary.BigEndian.PutUint16(fixed[8:10], uint16(len(rdata)))
	out = append(out, fixed...)
	out = append(out, rdata...)
	return out, nil
}

// ParseRecord parses one resource record from msg at *off, advancing *off
// past it, and dispatches RDATA parsing to the concrete type registered for
// the wire type. Unknown types decode to an OpaqueRecord carrying the raw
// RDATA bytes, so a message with a record type this library doesn't model
// still parses rather than failing the whole packet.
func ParseRecord(msg []byte, off *int) (Record, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return nil, err
	}
	if *off+10 > len(msg) {
		return nil, fmt.Errorf("%w: unexpected EOF while reading RR fixed fields", ErrDNSError)
	}
	rrType := RecordType(binary.BigEndian.Uint16(msg[*off : *off+2]))
	rrClass := binary.BigEndian.Uint16(msg[*off+2 : *off+4])
	ttl := binary.BigEndian.Uint32(msg[*off+4 : *off+8])
	rdlen := int(binary.BigEndian.Uint16(msg[*off+8 : *off+10]))
	*off += 10
	start := *off
	if start+rdlen > len(msg) {
		return nil, fmt.Errorf("%w: unexpected EOF while reading RDATA", ErrDNSError)
	}

	h := RRHeader{Name: name, Class: rrClass, TTL: helpers.ClampTTLSeconds(ttl)}

	var rr Record
	switch rrType {
	case TypeA, TypeAAAA:
		rr, err = ParseIPRData(msg, off, rdlen)
	case TypeCNAME, TypeNS, TypePTR:
		rr, err = ParseNameRData(msg, off, start, rdlen, rrType)
	case TypeMX:
		rr, err = ParseMXRData(msg, off, start, rdlen)
	case TypeTXT:
		rr, err = ParseTXTRData(msg, off, rdlen)
	case TypeHINFO:
		rr, err = ParseHINFORData(msg, off, rdlen)
	case TypeSOA:
		rr, err = ParseSOARData(msg, off, start, rdlen)
	case TypeRP:
		rr, err = ParseRPRData(msg, off, start, rdlen)
	default:
		rr, err = ParseOpaqueRData(msg, off, rdlen, rrType)
	}
	if err != nil {
		return nil, err
	}
	if *off != start+rdlen {
		return nil, fmt.Errorf("%w: RDATA length mismatch for %s", ErrDNSError, rrType)
	}
	rr.SetHeader(h)
	return rr, nil
}
