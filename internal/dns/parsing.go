package dns

import "errors"

// Limits on incoming DNS messages, preventing a hostile or broken server
// from forcing unbounded allocation while a query is in flight.
const (
	MaxIncomingDNSMessageSize = 65535 // Maximum size of an incoming DNS message (TCP length-prefix ceiling)
	MaxQuestions              = 1     // A query we sent carries exactly one question; a reply must echo it
	MaxRRPerSection           = 100   // Maximum resource records accepted per section
	MaxTotalRR                = 300   // Maximum total resource records accepted in one reply
)

// ParseReplyBounded parses a DNS reply from a server with resource bounds
// applied before any record-level allocation happens. It requires the QR
// flag (a query echoed back at us is not a reply) and a standard-query
// opcode, and rejects section counts outside the limits above.
//
// It does not check the message ID or the echoed question against the
// query that was sent; that correlation happens in the reply dispatcher,
// which has access to the outstanding query set.
func ParseReplyBounded(msg []byte) (Packet, error) {
	if len(msg) > MaxIncomingDNSMessageSize {
		return Packet{}, errors.New("dns reply too large")
	}
	p, err := ParsePacket(msg)
	if err != nil {
		return Packet{}, err
	}
	if !isResponse(p.Header.Flags) {
		return Packet{}, errors.New("dns reply: QR flag not set")
	}
	if Opcode(p.Header.Flags) != 0 {
		return Packet{}, errors.New("dns reply: unsupported opcode")
	}
	if err := validateSectionCounts(p.Header); err != nil {
		return Packet{}, err
	}
	return p, nil
}

func isResponse(flags uint16) bool {
	return (flags & QRFlag) != 0
}

func validateSectionCounts(h Header) error {
	qd := int(h.QDCount)
	an := int(h.ANCount)
	ns := int(h.NSCount)
	ar := int(h.ARCount)

	if qd > MaxQuestions {
		return errors.New("dns reply: too many questions")
	}
	if an > MaxRRPerSection || ns > MaxRRPerSection || ar > MaxRRPerSection {
		return errors.New("dns reply: too many resource records in one section")
	}
	if an+ns+ar > MaxTotalRR {
		return errors.New("dns reply: too many total resource records")
	}
	return nil
}
