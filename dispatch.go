package adns

import (
	"bytes"
	"net"
	"time"

	"github.com/nandub/adns/internal/arena"
	"github.com/nandub/adns/internal/dns"
)

// dispatch implements the reply-processing pipeline from spec §4.7:
// header validation, query matching by id and question, rcode
// classification, wanted-RR extraction with CNAME absorption, and
// NODATA/NXDOMAIN classification, finishing by building the Answer or
// spawning child queries. A NOERROR reply with no wanted records is
// reported as NODATA without inspecting its authority section, so a
// referral is not told apart from NODATA. Called with h.mu held.
func (h *Handle) dispatch(msg []byte, _ net.Addr) {
	pkt, err := dns.ParsePacket(msg)
	if err != nil {
		h.cfg.Logger.Debug("adns: dropping malformed reply", "wireErr", dns.IsWireError(err), "err", err)
		return
	}
	if !pkt.Header.IsResponse() {
		return // not a response
	}

	qu, ok := h.byID[pkt.Header.ID]
	if !ok {
		return // no outstanding query with this id; stale or spoofed reply
	}
	if len(pkt.Questions) != 1 || !questionMatches(pkt.Questions[0], qu) {
		return // id matched by chance but question section doesn't
	}

	if dns.IsTruncated(msg) {
		h.removeFromTimew(qu)
		h.demoteToTCP(qu)
		return
	}

	rcode := pkt.Header.RCode()
	h.removeFromTimew(qu)
	delete(h.byID, qu.id)

	switch rcode {
	case dns.RCodeServFail:
		h.failQuery(qu, StatusRCodeServFail)
		return
	case dns.RCodeFormErr:
		h.failQuery(qu, StatusRCodeFormatError)
		return
	case dns.RCodeNotImp:
		h.failQuery(qu, StatusRCodeNotImplemented)
		return
	case dns.RCodeRefused:
		h.failQuery(qu, StatusRCodeRefused)
		return
	case dns.RCodeNoError, dns.RCodeNXDomain:
	default:
		h.failQuery(qu, StatusInvalidResponse)
		return
	}

	h.processAnswer(qu, pkt, rcode)
}

func questionMatches(q dns.Question, qu *Query) bool {
	return q.Matches(qu.name, uint16(qu.kind.WireType()))
}

func (h *Handle) removeFromTimew(qu *Query) {
	h.timew = removeQuery(h.timew, qu)
}

// processAnswer handles a NOERROR or NXDOMAIN reply: it absorbs any
// leading CNAME chain, classifies NODATA vs a genuine answer set, and
// either finishes the query or spawns child queries for cooked types.
func (h *Handle) processAnswer(qu *Query, pkt dns.Packet, rcode dns.RCode) {
	records := pkt.Answers
	owner := qu.name

	for {
		cname, rest, found := extractLeadingCNAME(records, owner)
		if !found {
			break
		}
		qu.cnameChain = append(qu.cnameChain, owner)
		if containsFold(qu.cnameChain, cname) {
			h.failQuery(qu, StatusInvalidResponse)
			return
		}
		owner = cname
		records = rest
	}

	wanted := filterByOwnerAndType(records, owner, qu.kind.WireType())

	if len(wanted) == 0 {
		if len(qu.cnameChain) > 0 {
			// The datagram named a new owner via CNAME but didn't also
			// carry records for it (reply.c's x_restartquery path):
			// re-query directly for the CNAME target rather than
			// finishing this as NODATA/NXDOMAIN.
			h.restartQuery(qu, owner)
			return
		}
		if rcode == dns.RCodeNXDomain {
			h.failQuery(qu, StatusNXDomain)
		} else {
			h.finishOK(qu, owner, &Answer{Status: StatusNoData, Type: qu.kind, Owner: owner})
		}
		return
	}

	ans := &Answer{Status: StatusOK, Type: qu.kind, Owner: owner}
	if len(qu.cnameChain) > 0 {
		ans.CNAME = owner
	}
	ans.TTL = minTTL(wanted)

	if err := populateAnswer(qu.arena, ans, wanted, qu.kind); err != nil {
		h.failQuery(qu, StatusNoMemory)
		return
	}

	if qu.kind.IsCooked() && needsChildren(qu.kind) {
		h.spawnChildren(qu, ans)
		return
	}

	h.finishOK(qu, owner, ans)
}

// needsChildren reports whether resolving t requires following child
// queries to turn referenced names into addresses (spec §4.4). NS and
// MX are cooked in this sense: their answer isn't complete until the
// exchange/nameserver names have addresses attached. PTR, SOA and RP
// are populated exactly like their raw counterparts, with no further
// validation, and need no child queries.
func needsChildren(t RRType) bool {
	switch t {
	case RRTypeNS, RRTypeMX:
		return true
	default:
		return false
	}
}

func (h *Handle) finishOK(qu *Query, owner string, ans *Answer) {
	if len(h.cfg.SortList) > 0 {
		sortAddrs(ans.Addrs, h.cfg.SortList)
	}
	qu.finish(ans)
	h.onChildQueryFinished(qu)
}

// failQuery finishes qu with a failure status, mirroring
// adns__query_fail: the answer is always non-nil so callers never have
// to special-case a missing Answer. An NXDOMAIN on a query submitted
// with FlagSearch first tries to advance to the next search-list
// candidate (spec §4.5) before actually finishing.
func (h *Handle) failQuery(qu *Query, status Status) {
	delete(h.byID, qu.id)
	h.removeFromTimew(qu)
	if status == StatusNXDomain {
		if next, ok := h.advanceSearchList(qu); ok {
			h.restartQuery(qu, next)
			return
		}
	}
	qu.finish(&Answer{Status: status, Type: qu.kind})
	h.onChildQueryFinished(qu)
}

// restartQuery rebuilds qu's query datagram for a new owner name and
// resubmits it over UDP, reusing the same id and Query so the caller
// still sees one completion (reply.c:300-317's x_restartquery). Used
// both for CNAME chasing past the end of a reply datagram and for
// search-list advancement after an NXDOMAIN.
func (h *Handle) restartQuery(qu *Query, owner string) {
	dgram, err := buildQueryDatagram(owner, qu.id, qu.kind, h.cfg.Flags&InitEDNS != 0)
	if err != nil {
		h.failQuery(qu, StatusQueryDomainInvalid)
		return
	}
	qu.name = owner
	qu.queryDgram = dgram
	qu.udpRetries = 0
	qu.udpSent = 0
	qu.tcpFailed = 0
	h.byID[qu.id] = qu
	h.enqueueUDP(qu)
}

func extractLeadingCNAME(records []dns.Record, owner string) (target string, rest []dns.Record, found bool) {
	for i, rec := range records {
		nr, ok := rec.(*dns.NameRecord)
		if !ok || !nr.IsCNAME() {
			continue
		}
		if !bytes.EqualFold([]byte(rec.Header().Name), []byte(owner)) {
			continue
		}
		rest = append(append([]dns.Record{}, records[:i]...), records[i+1:]...)
		return nr.Target, rest, true
	}
	return "", records, false
}

func filterByOwnerAndType(records []dns.Record, owner string, wireType dns.RecordType) []dns.Record {
	var out []dns.Record
	for _, rec := range records {
		if rec.Type() != wireType {
			continue
		}
		if !bytes.EqualFold([]byte(rec.Header().Name), []byte(owner)) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func minTTL(records []dns.Record) time.Duration {
	min := uint32(0)
	for i, rec := range records {
		ttl := rec.Header().TTL
		if i == 0 || ttl < min {
			min = ttl
		}
	}
	return time.Duration(min) * time.Second
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if bytes.EqualFold([]byte(v), []byte(s)) {
			return true
		}
	}
	return false
}

// populateAnswer fills Answer's type-specific fields from the matching
// records, per the cooked/raw family each RRType belongs to. Every
// string copied out of a record goes through arena first, mirroring
// adns's interim allocation tracking (spec §4.4): a query whose
// scratch budget is exceeded fails with StatusNoMemory rather than
// returning a partial answer.
func populateAnswer(interim *arena.Interim, ans *Answer, records []dns.Record, kind RRType) error {
	cp := func(s string) (string, error) { return interim.AllocString(s) }

	switch kind {
	case RRTypeA, RRTypeAAAA, RRTypeADDR:
		for _, rec := range records {
			if ip, ok := rec.(*dns.IPRecord); ok {
				ans.Addrs = append(ans.Addrs, ip.Addr)
			}
		}
	case RRTypeCNAME, RRTypeNSRaw, RRTypeNS, RRTypePTRRaw, RRTypePTR:
		for _, rec := range records {
			if nr, ok := rec.(*dns.NameRecord); ok {
				name, err := cp(nr.Target)
				if err != nil {
					return err
				}
				ans.Names = append(ans.Names, name)
			}
		}
	case RRTypeMXRaw, RRTypeMX:
		for _, rec := range records {
			if mx, ok := rec.(*dns.MXRecord); ok {
				name, err := cp(mx.Exchange)
				if err != nil {
					return err
				}
				ans.Names = append(ans.Names, name)
				ans.MXPrefs = append(ans.MXPrefs, int(mx.Preference))
			}
		}
	case RRTypeTXT:
		for _, rec := range records {
			if txt, ok := rec.(*dns.TXTRecord); ok {
				strs := make([]string, len(txt.Strings))
				for i, s := range txt.Strings {
					cs, err := cp(s)
					if err != nil {
						return err
					}
					strs[i] = cs
				}
				ans.Texts = append(ans.Texts, strs)
			}
		}
	case RRTypeHINFO:
		for _, rec := range records {
			if hi, ok := rec.(*dns.HINFORecord); ok {
				cpu, err := cp(hi.CPU)
				if err != nil {
					return err
				}
				os, err := cp(hi.OS)
				if err != nil {
					return err
				}
				ans.HostInfo = append(ans.HostInfo, [2]string{cpu, os})
			}
		}
	case RRTypeSOARaw, RRTypeSOA:
		if len(records) > 0 {
			if soa, ok := records[0].(*dns.SOARecord); ok {
				mname, err := cp(soa.MName)
				if err != nil {
					return err
				}
				rname, err := cp(soa.RName)
				if err != nil {
					return err
				}
				ans.SOA = &SOAAnswer{
					MName:   mname,
					RName:   rname,
					Serial:  soa.Serial,
					Refresh: soa.Refresh,
					Retry:   soa.Retry,
					Expire:  soa.Expire,
					Minimum: soa.Minimum,
				}
			}
		}
	case RRTypeRPRaw, RRTypeRP:
		if len(records) > 0 {
			if rp, ok := records[0].(*dns.RPRecord); ok {
				mbox, err := cp(rp.Mbox)
				if err != nil {
					return err
				}
				txtdn, err := cp(rp.TXTDn)
				if err != nil {
					return err
				}
				ans.RP = &RPAnswer{Mailbox: mbox, TXTDom: txtdn}
			}
		}
	}
	return nil
}
