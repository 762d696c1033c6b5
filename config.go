package adns

import (
	"log/slog"
	"time"

	"github.com/nandub/adns/internal/addrfam"
	"github.com/nandub/adns/internal/logging"
)

// InitFlags mirrors adns_initflags (spec §3, §6).
type InitFlags uint32

const (
	// InitNoAutoSystem has no effect: this package never reads platform
	// resolver configuration, so Config.Servers/Search must always be
	// populated by the caller.
	InitNoAutoSystem InitFlags = 1 << iota
	// InitNoEnv has no effect: this package reads no environment
	// variables (internal/config applies the ADNS_* overrides).
	InitNoEnv
	// InitEDNS enables EDNS0 on outgoing queries, advertising a larger
	// UDP payload size so more answers avoid the TCP fallback.
	InitEDNS
	// InitCheckC is kept in Flags but no code in this package reads it;
	// it enables no additional checking.
	InitCheckC
	// InitNoSigpipe disables the SIGPIPE protect/unprotect bracketing
	// around TCP writes (sigpipe.go); set this if the embedding program
	// already manages SIGPIPE's disposition itself.
	InitNoSigpipe
	// InitNoErrPrint suppresses the plain-diagnostic (info-level) log
	// records adns__diag would print for protocol-level oddities in a
	// reply, leaving only warn-level server failures and debug output.
	InitNoErrPrint
	// InitNoServerWarn suppresses the warn-level record normally logged
	// once per server that fails to answer, for callers that already
	// surface per-server health some other way.
	InitNoServerWarn
	// InitDebug enables the verbose debug-level trace adns__debug emits
	// for every datagram sent and received.
	InitDebug
)

// Config configures a Handle. Zero-value fields take adns's documented
// defaults: no servers (Init fails without at least one), ndots 1, 15
// UDP retries per spec §4.6.
type Config struct {
	// Servers is the ordered list of nameserver addresses to query.
	// Entries without a port default to 53.
	Servers []string

	// Search is the domain search list appended to unqualified names
	// (spec §6). It is used only by queries submitted with FlagSearch;
	// NDots decides whether the name as given is tried first or last.
	Search []string

	// NDots is the dot-count threshold below which the search list is
	// tried before the name as given. The historical default is 1.
	NDots int

	// SortList reorders multi-address answers so that addresses
	// matching an earlier entry sort before ones matching a later
	// entry or none at all.
	SortList []addrfam.SortListEntry

	// Flags are the parsed init flags.
	Flags InitFlags

	// UDPRetries is the number of UDP transmissions (the first send
	// included) made across the configured servers in round-robin. Once
	// they are used up the query fails with StatusTimeout; no TCP
	// attempt follows. Default 15.
	UDPRetries int

	// UDPRetryInterval is how long a query waits for a UDP reply before
	// retrying. Default 2000ms (spec §4.6).
	UDPRetryInterval time.Duration

	// TCPTimeout bounds how long a TCP connect or read may take before
	// the query is demoted to the next server. Default 30000ms.
	TCPTimeout time.Duration

	// Logger receives adns's debug/warn/diagnostic output. A nil
	// Logger disables all resolver-internal logging.
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.NDots <= 0 {
		c.NDots = 1
	}
	if c.UDPRetries <= 0 {
		c.UDPRetries = 15
	}
	if c.UDPRetryInterval <= 0 {
		c.UDPRetryInterval = 2000 * time.Millisecond
	}
	if c.TCPTimeout <= 0 {
		c.TCPTimeout = 30000 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	c.Logger = slog.New(logging.FilterHandler(c.Logger.Handler(),
		c.Flags&InitNoErrPrint != 0, c.Flags&InitNoServerWarn != 0, c.Flags&InitDebug != 0))
	return c
}
