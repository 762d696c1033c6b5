package adns

import (
	"net"
	"time"

	"github.com/nandub/adns/internal/arena"
)

// queryState is the execution-state tag from spec §4.5 / the original's
// query_udp/query_tcpwait/query_tcpsent/query_child/query_done enum.
// Queue membership is implied by state: udp queries with pending
// retries and tcpwait/tcpsent queries live on the handle's timer queue,
// child queries live on the child-wait queue, done queries live on the
// output queue — never more than one at a time, per the invariant in
// spec §4.5.
type queryState int

const (
	stateUDP queryState = iota
	stateTCPWait
	stateTCPSent
	stateChild
	stateDone
)

// SubmitFlags mirrors adns_queryflags for the handful of per-query
// knobs spec §6 names.
type SubmitFlags uint32

const (
	// FlagSearch applies the handle's search list to unqualified names.
	FlagSearch SubmitFlags = 1 << iota
	// FlagUseVC forces this query onto TCP from the start.
	FlagUseVC
	// FlagQuoteOKQuery permits \ddd/\X escapes in the owner name.
	FlagQuoteOKQuery
)

// Answer is the result of a completed query (spec §3's adns_answer).
type Answer struct {
	Status Status
	Type   RRType

	// CNAME is the final canonical name reached after chasing any
	// CNAME chain, or "" if the owner name itself held the answer.
	CNAME string

	// Owner is the name the answer is actually for (post-CNAME-chase).
	Owner string

	// TTL is the minimum TTL across the records making up this answer.
	TTL time.Duration

	// Addrs holds resolved addresses for RRTypeA/AAAA/ADDR queries,
	// already sorted per the handle's configured sort list.
	Addrs []net.IP

	// Names holds resolved domain-name values for CNAME/NS/PTR/MX
	// (mnemonic: the RDATA name, not including MX's preference) queries.
	Names []string

	// Texts holds TXT record strings.
	Texts [][]string

	// HostInfo holds HINFO (CPU, OS) pairs.
	HostInfo [][2]string

	// MXPrefs holds MX preference values, parallel to Names when
	// Type is RRTypeMX or RRTypeMXRaw.
	MXPrefs []int

	// SOA holds the zone's SOA fields when Type is RRTypeSOA/SOARaw.
	SOA *SOAAnswer

	// RP holds responsible-person fields when Type is RRTypeRP/RPRaw.
	RP *RPAnswer
}

// SOAAnswer mirrors the SOA RDATA fields an answer can carry.
type SOAAnswer struct {
	MName   string
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// RPAnswer mirrors the RP RDATA fields an answer can carry.
type RPAnswer struct {
	Mailbox string
	TXTDom  string
}

// Query is a single outstanding or completed lookup (spec §4's
// adns_query). A Query is only ever touched from the goroutine driving
// its Handle — see Handle's doc comment.
type Query struct {
	h    *Handle
	id   uint16
	kind RRType
	name string
	flags SubmitFlags

	state queryState

	// udpNextServer/udpRetries/udpSent track the retry walk across
	// ads->servers (spec §4.6); tcpFailed is a per-server bitmap of
	// servers whose TCP connection has already failed for this query.
	udpNextServer int
	udpRetries    int
	udpSent       uint32
	tcpFailed     uint32

	timeout time.Time

	queryDgram []byte

	// cnameChain records owner names already visited while chasing
	// CNAMEs, so a referral loop is detected rather than looping
	// forever (spec §4.4).
	cnameChain []string

	// searchList holds the full ordered candidate names computed at
	// Submit time when FlagSearch is set (searchlist.go's
	// searchCandidates); searchIdx is the index of the candidate
	// currently in flight. A negative (NXDOMAIN) result advances
	// searchIdx and restarts the query at the next candidate (spec
	// §4.5) before giving up.
	searchList []string
	searchIdx  int

	parent   *Query
	children []*Query
	pendingChildren int

	// arena tracks this query's scratch string allocations while its
	// reply is decoded (spec §4.4). A completed child's arena is
	// adopted into its parent's via TransferTo rather than copied, so
	// the budget accounting for a whole cooked query stays in one
	// place (children.go's tryCompleteParent).
	arena *arena.Interim

	answer *Answer
	err    error

	done chan struct{}
}

// Name returns the name this query was submitted for.
func (q *Query) Name() string { return q.name }

// Type returns the RR type this query is resolving.
func (q *Query) Type() RRType { return q.kind }

// Check returns the query's answer if it has completed, without
// blocking the caller or driving the event loop.
func (q *Query) Check() (*Answer, bool) {
	select {
	case <-q.done:
		return q.answer, true
	default:
		return nil, false
	}
}

// Cancel abandons the query. Any already-sent request is left to be
// discarded by the server; no further reply for this id will be
// dispatched once Cancel returns.
func (q *Query) Cancel() {
	q.h.cancel(q)
}

func newQuery(h *Handle, id uint16, kind RRType, name string, flags SubmitFlags) *Query {
	return &Query{
		h:     h,
		id:    id,
		kind:  kind,
		name:  name,
		flags: flags,
		state: stateUDP,
		done:  make(chan struct{}),
		arena: arena.NewInterim(0),
	}
}

func (q *Query) finish(ans *Answer) {
	q.answer = ans
	q.state = stateDone
	q.h.output = appendUnique(q.h.output, q)
	close(q.done)
}
