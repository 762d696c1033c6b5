package adns

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/nandub/adns/internal/dns"
)

// buildQueryDatagram assembles the wire-format query for name/id/rrtype,
// mirroring adns__mkquery: RD set, QDCOUNT=1, everything else zero.
// When withEDNS is set, an OPT additional record advertising this
// resolver's UDP payload size is appended (spec AMBIENT STACK / edns.go).
func buildQueryDatagram(name string, id uint16, rrtype RRType, withEDNS bool) ([]byte, error) {
	pkt := dns.Packet{
		Header: dns.Header{
			ID:      id,
			Flags:   dns.RDFlag,
			QDCount: 1,
		},
		Questions: []dns.Question{
			{Name: name, Type: uint16(rrtype.WireType()), Class: uint16(dns.ClassIN)},
		},
	}
	b, err := pkt.Marshal()
	if err != nil {
		return nil, err
	}
	if withEDNS {
		b = dns.AddEDNSToRequestBytes(pkt, b, dns.EDNSDefaultUDPPayloadSize)
	}
	return b, nil
}

// enqueueUDP puts qu on the timer queue in the udp state and sends its
// first UDP datagram. Called with h.mu held.
func (h *Handle) enqueueUDP(qu *Query) {
	qu.state = stateUDP
	h.sendUDP(qu)
}

// sendUDP transmits qu's datagram to its next server in rotation and
// arms its retry timeout, per adns__query_udp.
func (h *Handle) sendUDP(qu *Query) {
	if qu.udpRetries >= h.cfg.UDPRetries {
		h.failQuery(qu, StatusTimeout)
		return
	}

	serv := h.udpServerIdx
	addr := h.servers[serv]
	if _, err := h.udpConn.WriteTo(qu.queryDgram, addr); err != nil {
		h.cfg.Logger.Warn("adns: udp send failed", "id", qu.id, "server", serv, "addr", addr.String(), "err", err)
	}

	qu.udpSent |= 1 << uint(serv)
	qu.udpNextServer = (serv + 1) % len(h.servers)
	h.udpServerIdx = qu.udpNextServer
	qu.udpRetries++
	qu.timeout = time.Now().Add(h.cfg.UDPRetryInterval)

	h.timew = appendUnique(h.timew, qu)
}

// demoteToTCP moves qu from UDP retries to the TCP path, used both when
// a reply reports truncation and when a query is submitted with
// FlagUseVC.
func (h *Handle) demoteToTCP(qu *Query) {
	qu.state = stateTCPWait
	qu.timeout = time.Now().Add(h.cfg.TCPTimeout)
	h.timew = appendUnique(h.timew, qu)
	h.tryConnectTCP()
	if h.tcpState == tcpOK {
		h.sendTCP(qu)
	}
}

func (h *Handle) tryConnectTCP() {
	if h.tcpState != tcpDisconnected {
		return
	}
	h.tcpServerIdx = h.udpServerIdx
	addr := h.servers[h.tcpServerIdx]
	conn, err := net.DialTimeout("tcp", addr.String(), h.cfg.TCPTimeout)
	if err != nil {
		h.cfg.Logger.Warn("adns: tcp connect failed", "server", h.tcpServerIdx, "addr", addr.String(), "err", err)
		return
	}
	h.tcpConn = conn
	h.tcpState = tcpOK
	h.tcpFramer = newTCPFramer(conn)
}

func (h *Handle) sendTCP(qu *Query) {
	if h.tcpState != tcpOK {
		return
	}
	if h.cfg.Flags&InitNoSigpipe == 0 {
		protectSigpipe()
		defer unprotectSigpipe()
	}
	if err := h.tcpFramer.writeMessage(qu.queryDgram); err != nil {
		h.tcpBroken(err)
		return
	}
	qu.state = stateTCPSent
}

// tcpBroken tears down the current TCP connection and requeues every
// query that was waiting on it back onto UDP against the next server,
// mirroring adns__tcp_broken.
func (h *Handle) tcpBroken(err error) {
	h.cfg.Logger.Warn("adns: tcp connection broken", "server", h.tcpServerIdx, "err", err)
	if h.tcpConn != nil {
		_ = h.tcpConn.Close()
	}
	h.tcpConn = nil
	h.tcpFramer = nil
	h.tcpState = tcpDisconnected

	for _, qu := range h.timew {
		if qu.state == stateTCPWait || qu.state == stateTCPSent {
			qu.tcpFailed |= 1 << uint(h.tcpServerIdx)
			qu.state = stateUDP
			h.sendUDP(qu)
		}
	}
}

// pollInterval bounds how long tick blocks on the UDP socket while a
// TCP connection is live, so a TCP reply is never starved behind a long
// UDP retry deadline (mirrors the old fixed polling cadence).
const pollInterval = 50 * time.Millisecond

// BeforeSelect reports how long a caller may safely block before
// calling AfterSelect again without missing a retry or TCP timeout.
// This is adns's beforeSelect half of the beforeSelect/afterSelect
// contract (spec §4.6): a caller integrating this resolver's sockets
// into its own select/poll/epoll loop folds UDPConn()/TCPConn() into
// its fd set and uses this value as the wait timeout, instead of
// calling Wait.
func (h *Handle) BeforeSelect() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.timew) == 0 {
		return h.cfg.UDPRetryInterval
	}
	if d := time.Until(h.nextDeadline()); d > 0 {
		return d
	}
	return 0
}

// AfterSelect is adns's afterSelect half: call it once UDPConn() or
// TCPConn() is reported readable (or once BeforeSelect's timeout
// elapses regardless). It never blocks: it drains whatever is already
// available on both sockets, dispatches it, and retries any query
// whose timeout has passed.
func (h *Handle) AfterSelect() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("adns: handle closed")
	}
	return h.afterSelectLocked()
}

func (h *Handle) afterSelectLocked() error {
	h.expireTimeouts()
	for {
		msg, from, ok, err := h.drainUDP(time.Now())
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		h.dispatch(msg, from)
	}
	for {
		msg, ok, err := h.drainTCP()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		h.dispatch(msg, h.tcpConn.RemoteAddr())
	}
	return nil
}

// tick drives one iteration of Wait's loop, built on top of
// BeforeSelect/AfterSelect exactly as a caller running its own reactor
// would use them: block on the UDP socket for BeforeSelect's budget (a
// real multi-fd select isn't available from Go's net package to hand
// back to a caller, so Wait settles for blocking on UDP and polling TCP
// at pollInterval), then call AfterSelect to drain and dispatch
// whatever arrived on either socket.
func (h *Handle) tick(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return errors.New("adns: handle closed")
	}
	h.mu.Unlock()

	deadline := time.Now().Add(h.BeforeSelect())
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	h.mu.Lock()
	hasTCP := h.tcpConn != nil
	h.mu.Unlock()
	if hasTCP {
		if pd := time.Now().Add(pollInterval); pd.Before(deadline) {
			deadline = pd
		}
	}

	msg, from, ok, err := h.drainUDP(deadline)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("adns: handle closed")
	}
	if ok {
		h.dispatch(msg, from)
	}
	return h.afterSelectLocked()
}

func (h *Handle) expireTimeouts() {
	now := time.Now()
	pending := h.timew[:0:0]
	var expired []*Query
	for _, qu := range h.timew {
		if now.Before(qu.timeout) {
			pending = append(pending, qu)
			continue
		}
		expired = append(expired, qu)
	}
	// Each expired query goes back on timew before it is handled, so a
	// UDP retry stays armed and tcpBroken still finds its TCP queries.
	h.timew = pending
	for _, qu := range expired {
		if qu.state == stateDone {
			continue
		}
		h.timew = appendUnique(h.timew, qu)
		switch qu.state {
		case stateUDP:
			h.sendUDP(qu)
		case stateTCPWait:
			h.tryConnectTCP()
			if h.tcpState == tcpOK {
				h.sendTCP(qu)
			} else {
				qu.timeout = now.Add(h.cfg.TCPTimeout)
			}
		case stateTCPSent:
			h.tcpBroken(fmt.Errorf("adns: tcp read timeout"))
		}
	}
}

func (h *Handle) nextDeadline() time.Time {
	deadline := time.Now().Add(h.cfg.UDPRetryInterval)
	for _, qu := range h.timew {
		if qu.timeout.Before(deadline) {
			deadline = qu.timeout
		}
	}
	return deadline
}

// drainUDP attempts a single non-blocking-by-deadline read of the UDP
// socket: passing time.Now() (AfterSelect's case, called once a host
// reactor reports the fd readable) returns immediately with whatever is
// already buffered, while tick passes a future deadline to get a real
// block when driving the loop itself.
func (h *Handle) drainUDP(deadline time.Time) (msg []byte, from net.Addr, ok bool, err error) {
	buf := make([]byte, 65535)
	_ = h.udpConn.SetReadDeadline(deadline)
	n, from, err := h.udpConn.ReadFrom(buf)
	if err != nil {
		if isTimeout(err) {
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("adns: udp read: %w", err)
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, from, true, nil
}

// drainTCP reads one already-available length-prefixed message from the
// TCP connection, if any, without blocking.
func (h *Handle) drainTCP() (msg []byte, ok bool, err error) {
	if h.tcpConn == nil {
		return nil, false, nil
	}
	_ = h.tcpConn.SetReadDeadline(time.Now())
	msg, err = h.tcpFramer.tryReadMessage()
	if err != nil {
		h.tcpBroken(err)
		return nil, false, nil
	}
	return msg, msg != nil, nil
}

// tcpFramer implements adns's 2-byte length-prefix TCP message framing.
type tcpFramer struct {
	conn net.Conn
	buf  []byte
}

func newTCPFramer(conn net.Conn) *tcpFramer {
	return &tcpFramer{conn: conn}
}

func (f *tcpFramer) writeMessage(msg []byte) error {
	prefix := make([]byte, 2)
	binary.BigEndian.PutUint16(prefix, uint16(len(msg)))
	if _, err := f.conn.Write(prefix); err != nil {
		return err
	}
	_, err := f.conn.Write(msg)
	return err
}

// tryReadMessage reads one length-prefixed message if the whole thing
// is already available within the connection's current read deadline,
// returning (nil, nil) on a bare timeout so the caller can go back to
// polling UDP.
func (f *tcpFramer) tryReadMessage() ([]byte, error) {
	prefix := make([]byte, 2)
	if _, err := io.ReadFull(f.conn, prefix); err != nil {
		if isTimeout(err) {
			return nil, nil
		}
		return nil, err
	}
	length := binary.BigEndian.Uint16(prefix)
	msg := make([]byte, length)
	if _, err := io.ReadFull(f.conn, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func appendUnique(list []*Query, qu *Query) []*Query {
	for _, q := range list {
		if q == qu {
			return list
		}
	}
	return append(list, qu)
}
