package adns

import "fmt"

// Status is the outcome of a query, mirroring adns_status from the C
// original: a small stable integer together with short and long string
// forms. Every Answer carries one; callers branch on Status rather than
// on a bare Go error, since most of the interesting outcomes here
// (NXDOMAIN, timeout, truncation recovered via TCP, ...) are not really
// failures of the Go program, they are facts about the DNS.
type Status int

// Severity buckets, in the same order as adns_s_max_* in the original:
// every status below a max_* marker belongs to that tier or an earlier
// one. Non-ok statuses are all program-visible: the resolver never
// panics or returns a bare error for anything the protocol can express.
const (
	StatusOK Status = iota

	// Local failures: something about this process's own state.
	StatusNoMemory
	StatusQueryDomainInvalid
	StatusQueryDomainTooLong
	statusMaxLocalFail

	// Remote failures: the nameserver said something was wrong with
	// our question, or an intermediate parent zone is broken.
	StatusNXDomain
	StatusNoData
	StatusUnknownRRType
	statusMaxRemoteFail

	// Timeouts and transient local-network conditions: retrying later,
	// or with different servers, might succeed.
	StatusTimeout
	StatusNetworkError
	StatusNoServersAvailable
	statusMaxTempFail

	// Local problems with how adns itself is configured or used.
	StatusNoSearchlistButSearch
	statusMaxMisconfig

	// The query as submitted was wrong in a way the server detected.
	StatusRCodeFormatError
	StatusRCodeServFail
	StatusRCodeNotImplemented
	StatusRCodeRefused
	StatusInvalidResponse
	statusMaxMisquery
)

var statusNames = map[Status]string{
	StatusOK:                    "ok",
	StatusNoMemory:              "nomemory",
	StatusQueryDomainInvalid:    "querydomaininvalid",
	StatusQueryDomainTooLong:    "querydomaintoolong",
	StatusNXDomain:              "nxdomain",
	StatusNoData:                "nodata",
	StatusUnknownRRType:         "unknownrrtype",
	StatusTimeout:               "timeout",
	StatusNetworkError:          "networkerror",
	StatusNoServersAvailable:    "noserversavailable",
	StatusNoSearchlistButSearch: "nosearchlistbutsearch",
	StatusRCodeFormatError:      "rcodeformaterror",
	StatusRCodeServFail:         "rcodeservfail",
	StatusRCodeNotImplemented:   "rcodenotimplemented",
	StatusRCodeRefused:          "rcoderefused",
	StatusInvalidResponse:       "invalidresponse",
}

var statusDescriptions = map[Status]string{
	StatusOK:                    "query completed successfully",
	StatusNoMemory:              "out of memory",
	StatusQueryDomainInvalid:    "domain name is syntactically invalid",
	StatusQueryDomainTooLong:    "domain name is too long",
	StatusNXDomain:              "no such domain",
	StatusNoData:                "no records of the requested type",
	StatusUnknownRRType:         "record type not supported by this resolver",
	StatusTimeout:               "no reply from any nameserver",
	StatusNetworkError:          "network error talking to nameserver",
	StatusNoServersAvailable:    "no nameservers configured",
	StatusNoSearchlistButSearch: "search list required but not configured",
	StatusRCodeFormatError:      "server complained of a format error",
	StatusRCodeServFail:         "server failure",
	StatusRCodeNotImplemented:   "server does not implement this query",
	StatusRCodeRefused:          "server refused the query",
	StatusInvalidResponse:       "server sent an invalid response",
}

// String returns the short, program-friendly name used in logs.
func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Description returns a one-line human-readable explanation, analogous
// to adns_strerror.
func (s Status) Description() string {
	if d, ok := statusDescriptions[s]; ok {
		return d
	}
	return s.String()
}

// Error implements error so a Status can be returned wherever Go idiom
// expects one (e.g. from helpers that don't have an Answer to attach it
// to), without blurring the line between Status and actual Go errors at
// the public-answer boundary.
func (s Status) Error() string {
	return s.Description()
}

// IsTempFail reports whether retrying the same query later might
// succeed (spec §9 resolution for classifying timeouts/network errors).
func (s Status) IsTempFail() bool {
	return s > statusMaxRemoteFail && s < statusMaxTempFail
}

// IsLocalFail reports whether the failure originates in this process
// rather than in the query itself or the network.
func (s Status) IsLocalFail() bool {
	return s > StatusOK && s < statusMaxLocalFail
}
