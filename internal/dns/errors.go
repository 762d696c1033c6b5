// Package dns parses and builds DNS wire-format messages: headers,
// questions, and the resource record zoo (RFC 1035, RFC 3596's AAAA,
// RFC 1183's RP, RFC 6891's EDNS OPT). It has no notion of a query
// lifecycle, retries, or servers; that belongs to the resolver built
// on top of it.
package dns

import "errors"

// ErrDNSError is the sentinel every wire-parsing failure wraps with
// fmt.Errorf("...: %w", ErrDNSError), so a caller that only cares
// whether a reply was malformed (as opposed to, say, a network error)
// can test for it with IsWireError rather than matching message text.
var ErrDNSError = errors.New("dns wire error")

// IsWireError reports whether err (or something it wraps) is a DNS
// message parsing failure, as distinct from a transport-level error
// like a closed socket or a read timeout.
func IsWireError(err error) bool {
	return errors.Is(err, ErrDNSError)
}
