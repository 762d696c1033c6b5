package adns

// childQueryTypes are the wire types spawned for each NS/MX target name
// (spec §4.3: "for each MX target, submit an A and an AAAA"), so an
// IPv6-only target still resolves to an address instead of silently
// dropping out of the parent's Addrs.
var childQueryTypes = [...]RRType{RRTypeA, RRTypeAAAA}

// spawnChildren submits an A and an AAAA query per name referenced by
// ans.Names (the NS/MX targets resolved so far) and parks the parent on
// the child-wait queue until they all complete, per spec §4.4: a cooked
// query isn't done until every child it spawned is done too, and a
// child's interim allocations are adopted into its parent's arena
// rather than copied (internal/arena.Interim.TransferTo).
func (h *Handle) spawnChildren(qu *Query, ans *Answer) {
	names := uniqueStrings(ans.Names)
	if len(names) == 0 {
		h.finishOK(qu, qu.name, ans)
		return
	}

	qu.state = stateChild
	qu.answer = ans // staged answer, filled in as children complete
	h.childw = appendUnique(h.childw, qu)

	for _, name := range names {
		for _, kind := range childQueryTypes {
			child := h.submitChildLocked(name, kind, qu)
			qu.children = append(qu.children, child)
		}
	}
	qu.pendingChildren = len(qu.children)
	h.tryCompleteParent(qu)
}

// submitChildLocked submits a child query directly, bypassing the
// public Submit's locking since the caller already holds h.mu. A
// synchronously-failed child (e.g. an invalid domain) is finished in
// place; the caller is responsible for checking completion afterward.
func (h *Handle) submitChildLocked(name string, kind RRType, parent *Query) *Query {
	id := h.allocateID()
	child := newQuery(h, id, kind, name, 0)
	child.parent = parent

	dgram, err := buildQueryDatagram(name, id, kind, h.cfg.Flags&InitEDNS != 0)
	if err != nil {
		child.finish(&Answer{Status: StatusQueryDomainInvalid, Type: kind})
		return child
	}
	child.queryDgram = dgram
	h.byID[id] = child
	h.enqueueUDP(child)
	return child
}

// onChildQueryFinished is invoked whenever a query with a parent
// completes (from dispatch's failQuery/finishOK paths), to check
// whether every sibling is now done and the parent can be finished too.
func (h *Handle) onChildQueryFinished(child *Query) {
	h.tryCompleteParent(child.parent)
}

// tryCompleteParent finishes parent once every query in parent.children
// has completed, aggregating their resolved addresses into parent's
// staged Answer. Safe to call speculatively (e.g. right after
// submitting all children, in case every one failed synchronously); it
// is a no-op if parent is nil, already done, or still has an
// outstanding child.
func (h *Handle) tryCompleteParent(parent *Query) {
	if parent == nil || parent.state != stateChild {
		return
	}
	for _, sib := range parent.children {
		if _, ok := sib.Check(); !ok {
			return
		}
	}

	ans := parent.answer
	parent.answer = nil
	for _, sib := range parent.children {
		sib.arena.TransferTo(parent.arena)
		if a, ok := sib.Check(); ok && a.Status == StatusOK {
			ans.Addrs = append(ans.Addrs, a.Addrs...)
		}
	}
	h.childw = removeQuery(h.childw, parent)
	h.finishOK(parent, parent.name, ans)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
