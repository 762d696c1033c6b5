// Package config loads resolver configuration for the cmd/ front ends.
//
// A stub resolver's configuration is the short list spec §6 describes:
// nameservers, a search list with ndots, a sort list, and a handful of
// init flags. It is loaded from an optional YAML file plus environment
// variable overrides, then handed to Init as an adns.Config — there is no
// live-reload or management API, since nothing in this library runs as a
// long-lived server.
//
// Environment variables override file values and use the ADNS_ prefix:
//   - ADNS_SERVERS -> comma-separated nameserver list
//   - ADNS_SEARCH  -> comma-separated search list
//   - ADNS_NDOTS   -> ndots threshold
//   - ADNS_FLAGS   -> comma-separated init flag names (see Flags)
package config

import (
	"net"
	"strconv"
	"strings"

	"github.com/nandub/adns/internal/addrfam"
)

// Flags mirrors adns's adns_initflags bitmask (spec §3, §6).
type Flags uint32

const (
	// FlagNoAutoSystem is parsed but changes nothing here: Load never
	// reads the platform resolver config (resolv.conf equivalent).
	FlagNoAutoSystem Flags = 1 << iota
	// FlagNoEnv disables ADNS_* environment variable overrides.
	FlagNoEnv
	// FlagEDNS enables EDNS0 on outgoing queries.
	FlagEDNS
	// FlagCheckC maps to adns.InitCheckC, which the resolver does not
	// read; it removes no records and enables no checking.
	FlagCheckC
)

var flagNames = map[string]Flags{
	"noautosystem": FlagNoAutoSystem,
	"noenv":        FlagNoEnv,
	"edns":         FlagEDNS,
	"checkc":       FlagCheckC,
}

// ParseFlags parses a comma-separated list of flag names (case-insensitive)
// into a Flags bitmask. Unknown names are ignored, mirroring adns's
// tolerant parsing of its ADNS_RES_OPTIONS-style environment input.
func ParseFlags(s string) Flags {
	var f Flags
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if v, ok := flagNames[name]; ok {
			f |= v
		}
	}
	return f
}

// Config is the resolver configuration a cmd/ front end builds and passes
// to adns.Init.
type Config struct {
	// Servers is the ordered list of nameserver addresses to query,
	// e.g. "8.8.8.8" or "8.8.8.8:53".
	Servers []string `yaml:"servers"`

	// Search is the domain search list appended to unqualified names.
	Search []string `yaml:"search"`

	// NDots is the dot-count threshold below which the search list is
	// tried before the name as given (spec §6).
	NDots int `yaml:"ndots"`

	// SortList reorders multi-address answers by locality.
	SortList []SortListEntry `yaml:"sort_list"`

	// Flags are the parsed init flags (FlagEDNS etc).
	Flags Flags `yaml:"-"`

	// FlagsRaw is the comma-separated flag-name form read from YAML or
	// the ADNS_FLAGS environment variable.
	FlagsRaw string `yaml:"flags"`

	// UDPRetries is the number of UDP transmissions made across all
	// servers in round-robin before the query fails with a timeout; no
	// TCP attempt follows (spec §4.6 default: 15).
	UDPRetries int `yaml:"udp_retries"`

	// Logging controls the resolver's structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// SortListEntry is the YAML-facing form of addrfam.SortListEntry.
type SortListEntry struct {
	Base string `yaml:"base"`
	Mask string `yaml:"mask"`
}

// Resolve converts a SortListEntry's string fields into an
// addrfam.SortListEntry, guessing a classful mask when Mask is empty.
func (e SortListEntry) Resolve() (addrfam.SortListEntry, error) {
	ip := net.ParseIP(e.Base)
	if ip == nil {
		return addrfam.SortListEntry{}, &ParseError{Field: "base", Value: e.Base}
	}
	if e.Mask == "" {
		bits := addrfam.GuessPrefixLength(ip)
		if bits < 0 {
			return addrfam.SortListEntry{}, &ParseError{Field: "base", Value: e.Base}
		}
		return addrfam.SortListEntry{Base: ip, Mask: addrfam.PrefixMask(ip, bits)}, nil
	}
	maskIP := net.ParseIP(e.Mask)
	if maskIP == nil {
		return addrfam.SortListEntry{}, &ParseError{Field: "mask", Value: e.Mask}
	}
	var mask net.IPMask
	if v4 := maskIP.To4(); v4 != nil {
		mask = net.IPMask(v4)
	} else {
		mask = net.IPMask(maskIP.To16())
	}
	return addrfam.SortListEntry{Base: ip, Mask: mask}, nil
}

// ParseError reports a malformed configuration value.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return "config: invalid " + e.Field + " value " + strconv.Quote(e.Value)
}

// LoggingConfig controls the resolver's structured logging, independent
// of adns's own debug/warn tiers (spec AMBIENT STACK).
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}
