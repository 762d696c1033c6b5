// Package adns is an asynchronous DNS stub resolver modeled on GNU
// adns: callers submit queries against a Handle and drive it forward by
// calling Wait (or Check, from their own loop), rather than each query
// owning a goroutine and a socket. See transport.go for how the single
// socket pair is multiplexed across outstanding queries.
package adns

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// tcpState is the handle-wide TCP connection state (spec §4's
// disconnected/connecting/ok).
type tcpState int

const (
	tcpDisconnected tcpState = iota
	tcpConnecting
	tcpOK
)

// Handle is a resolver instance: its own server list, sockets, and set
// of outstanding queries. A Handle is not safe for concurrent use from
// multiple goroutines without external synchronization — like adns
// itself, it expects a single caller to drive it via Wait/Check, though
// Submit/Cancel take an internal lock so they may be called from a
// callback invoked during Wait.
type Handle struct {
	id     string
	cfg    Config
	servers []*net.UDPAddr

	mu sync.Mutex

	udpConn net.PacketConn
	udpServerIdx int

	tcpConn  net.Conn
	tcpState tcpState
	tcpServerIdx int
	tcpTimeout   time.Time
	tcpSendBuf   []byte
	tcpFramer    *tcpFramer

	nextID uint16

	timew   []*Query // queries awaiting a timeout/retry/reply
	childw  []*Query // queries waiting on their children
	output  []*Query // completed queries not yet delivered

	byID map[uint16]*Query

	closed bool
}

// Init creates a Handle from cfg. cfg.Servers must name at least one
// server: this library never reads platform resolver configuration
// (the cmd/ front ends load Config via internal/config instead).
func Init(cfg Config) (*Handle, error) {
	cfg = cfg.withDefaults()
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("adns: %w", StatusNoServersAvailable)
	}

	addrs := make([]*net.UDPAddr, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		addr, err := resolveServerAddr(s)
		if err != nil {
			return nil, fmt.Errorf("adns: invalid server %q: %w", s, err)
		}
		addrs = append(addrs, addr)
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("adns: open udp socket: %w", err)
	}

	h := &Handle{
		id:      uuid.NewString(),
		cfg:     cfg,
		servers: addrs,
		udpConn: conn,
		byID:    make(map[uint16]*Query),
	}
	cfg.Logger.Debug("adns: initialized", "handle", h.id, "servers", cfg.Servers)
	return h, nil
}

func resolveServerAddr(s string) (*net.UDPAddr, error) {
	if _, _, err := net.SplitHostPort(s); err != nil {
		s = net.JoinHostPort(s, "53")
	}
	return net.ResolveUDPAddr("udp", s)
}

// Close releases the handle's sockets. Outstanding queries are left
// incomplete; callers should Cancel them first if that matters.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	var err error
	if h.udpConn != nil {
		err = h.udpConn.Close()
	}
	if h.tcpConn != nil {
		if e := h.tcpConn.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// Submit starts a new query for name, of the given type, applying
// flags. The query begins in the udp state (tcpwait with FlagUseVC)
// and is driven forward by Wait/Check. A name containing a backslash
// escape is rejected unless flags include FlagQuoteOKQuery.
func (h *Handle) Submit(name string, rrtype RRType, flags SubmitFlags) (*Query, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("adns: handle closed")
	}
	if flags&FlagQuoteOKQuery == 0 && strings.ContainsRune(name, '\\') {
		return nil, fmt.Errorf("adns: %w: escape in %q without FlagQuoteOKQuery", StatusQueryDomainInvalid, name)
	}

	owner := name
	var candidates []string
	if flags&FlagSearch != 0 {
		candidates = searchCandidates(name, h.cfg.Search, h.cfg.NDots)
		owner = candidates[0]
	}

	id := h.allocateID()
	dgram, err := buildQueryDatagram(owner, id, rrtype, h.cfg.Flags&InitEDNS != 0)
	if err != nil {
		return nil, fmt.Errorf("adns: %w: %v", StatusQueryDomainInvalid, err)
	}

	qu := newQuery(h, id, rrtype, owner, flags)
	qu.queryDgram = dgram
	qu.searchList = candidates
	h.byID[id] = qu
	if flags&FlagUseVC != 0 {
		h.demoteToTCP(qu)
	} else {
		h.enqueueUDP(qu)
	}

	h.cfg.Logger.Debug("adns: submitted query", "name", owner, "type", rrtype.String(), "id", id)
	return qu, nil
}

func (h *Handle) allocateID() uint16 {
	for {
		h.nextID++
		if _, taken := h.byID[h.nextID]; !taken {
			return h.nextID
		}
	}
}

// Wait blocks until qu completes or ctx is done, driving the handle's
// transport loop (UDP sends/retries, TCP fallback, reply dispatch)
// cooperatively in this goroutine.
func (h *Handle) Wait(ctx context.Context, qu *Query) (*Answer, error) {
	for {
		if ans, ok := qu.Check(); ok {
			h.mu.Lock()
			h.output = removeQuery(h.output, qu)
			h.mu.Unlock()
			return ans, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := h.tick(ctx); err != nil {
			return nil, err
		}
	}
}

// cancel removes qu from whichever queue it is on and drops it from
// the id table, so a late reply for it is ignored.
func (h *Handle) cancel(qu *Query) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byID, qu.id)
	h.timew = removeQuery(h.timew, qu)
	h.childw = removeQuery(h.childw, qu)
	h.output = removeQuery(h.output, qu)
	if qu.state != stateDone {
		qu.answer = &Answer{Status: StatusTimeout, Type: qu.kind}
		qu.state = stateDone
		close(qu.done)
	}
}

// UDPConn returns the handle's UDP socket, for a caller integrating
// this resolver into its own select/poll event loop via
// BeforeSelect/AfterSelect instead of calling Wait.
func (h *Handle) UDPConn() net.PacketConn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.udpConn
}

// TCPConn returns the handle's current TCP connection, or nil if none
// is connected right now (the resolver only opens one when a reply is
// truncated or a query is submitted with FlagUseVC).
func (h *Handle) TCPConn() net.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tcpConn
}

// CheckAny returns and removes the oldest completed query from the
// handle's output queue without blocking, mirroring adns's check(null)
// form (spec §4.5): check a specific query via Query.Check, or drain
// the next completed query in finish order via this method.
func (h *Handle) CheckAny() (*Query, *Answer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.output) == 0 {
		return nil, nil, false
	}
	qu := h.output[0]
	h.output = h.output[1:]
	return qu, qu.answer, true
}

// ForAllQueries calls fn once for every query the handle currently
// tracks — outstanding, waiting on children, or completed but not yet
// drained from the output queue — in no particular order, stopping
// early if fn returns false. Mirrors adns's
// adns_forallqueries_begin/next (spec §4.5).
func (h *Handle) ForAllQueries(fn func(*Query) bool) {
	h.mu.Lock()
	all := make([]*Query, 0, len(h.byID)+len(h.childw)+len(h.output))
	seen := make(map[*Query]struct{}, cap(all))
	add := func(qu *Query) {
		if _, ok := seen[qu]; ok {
			return
		}
		seen[qu] = struct{}{}
		all = append(all, qu)
	}
	for _, qu := range h.byID {
		add(qu)
	}
	for _, qu := range h.childw {
		add(qu)
	}
	for _, qu := range h.output {
		add(qu)
	}
	h.mu.Unlock()

	for _, qu := range all {
		if !fn(qu) {
			return
		}
	}
}

func removeQuery(list []*Query, qu *Query) []*Query {
	for i, q := range list {
		if q == qu {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
