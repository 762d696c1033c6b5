// Package arena implements the per-query two-phase allocator: an interim
// phase that tracks every allocation a query makes while its reply is being
// parsed, and a final phase that copies everything reachable from the
// finished answer into one contiguous block.
//
// Go's runtime already garbage-collects, so this isn't a manual allocator —
// it's the bookkeeping adns itself does on top of malloc: a running total
// used to simulate out-of-memory during processing (so a query can fail
// cheaply mid-parse rather than after committing a partial answer), and a
// single bump-allocated final block so an Answer's interior strings and
// record slices all come from one backing array.
package arena

import "fmt"

// Alignment mirrors adns's MEM_ROUND: every interim allocation is rounded
// up to this boundary before being added to the running total.
const Alignment = 8

// Round rounds n up to the next multiple of Alignment.
func Round(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// ErrBudgetExceeded is returned by Interim.Alloc when a query's interim
// allocations would exceed its configured budget, simulating the
// out-of-memory path described in spec §4.4/§7.
var ErrBudgetExceeded = fmt.Errorf("arena: interim allocation budget exceeded")

// Interim tracks one query's scratch allocations while its reply is
// being decoded. Every allocation is rounded to Alignment and added to a
// running total; Reset drops them all at once, mirroring "the list is
// freed en bloc" on query failure.
type Interim struct {
	budget int // 0 means unlimited
	total  int
	allocs [][]byte
}

// NewInterim creates an interim arena. A budget of 0 means no limit is
// enforced (the common case); a positive budget makes Alloc fail once the
// rounded running total would exceed it, for tests that exercise the
// nomemory path deterministically.
func NewInterim(budget int) *Interim {
	return &Interim{budget: budget}
}

// Alloc reserves size bytes, returning a slice of exactly that length.
// The rounded size is added to the running total before the slice is
// actually materialized, so a budget check can fail without allocating.
func (a *Interim) Alloc(size int) ([]byte, error) {
	rounded := Round(size)
	if a.budget > 0 && a.total+rounded > a.budget {
		return nil, ErrBudgetExceeded
	}
	a.total += rounded
	buf := make([]byte, size)
	a.allocs = append(a.allocs, buf)
	return buf, nil
}

// AllocString is Alloc for a Go string value; it copies s into a fresh
// interim allocation and returns it reinterpreted as a string.
func (a *Interim) AllocString(s string) (string, error) {
	b, err := a.Alloc(len(s))
	if err != nil {
		return "", err
	}
	copy(b, s)
	return string(b), nil
}

// Total returns the running total of rounded allocation sizes.
func (a *Interim) Total() int { return a.total }

// Reset discards every interim allocation, as happens when a query fails
// before reaching the final phase.
func (a *Interim) Reset() {
	a.allocs = nil
	a.total = 0
}

// TransferTo moves every allocation (and the running total) from a child
// query's interim arena to its parent's, as described in spec §4.4: when a
// child completes, its interim storage is adopted by the parent rather
// than copied, so the parent's eventual final block accounts for it too.
func (a *Interim) TransferTo(parent *Interim) {
	parent.allocs = append(parent.allocs, a.allocs...)
	parent.total += a.total
	a.allocs = nil
	a.total = 0
}

// Finalizable is implemented by anything that holds interim-allocated data
// (typically record structs with string or []byte fields) and knows how to
// re-home that data into a Final block.
type Finalizable interface {
	Finalize(f *Final)
}

// Final is the single contiguous block a query's answer is copied into
// once parsing completes successfully. It is sized exactly once, from the
// answer's own size plus the interim running total, and every Alloc call
// against it must be satisfied from that one backing array — a debug
// assertion in Promote catches a final block sized too small.
type Final struct {
	buf []byte
	off int
}

// NewFinal allocates a final block sized to size, rounded to Alignment.
func NewFinal(size int) *Final {
	return &Final{buf: make([]byte, Round(size))}
}

// Alloc copies data into the next unused region of the final block and
// returns that region. It panics if the block is too small, which would
// indicate the caller sized NewFinal incorrectly — this is a programming
// error, not a runtime condition callers should handle.
func (f *Final) Alloc(data []byte) []byte {
	rounded := Round(len(data))
	if f.off+rounded > len(f.buf) {
		panic("arena: final block undersized")
	}
	dst := f.buf[f.off : f.off+len(data) : f.off+rounded]
	copy(dst, data)
	f.off += rounded
	return dst
}

// AllocString is Alloc for a string value.
func (f *Final) AllocString(s string) string {
	return string(f.Alloc([]byte(s)))
}

// Remaining reports how many bytes of the final block are still unused.
func (f *Final) Remaining() int { return len(f.buf) - f.off }

// Promote builds the final block for an answer of answerSize bytes plus
// everything tracked in interim, then finalizes every item in order. It
// asserts the interim arena's allocations are fully consumed: every byte
// interim tracked must have a corresponding Finalize call, per the
// "interim counter hits zero exactly" invariant in spec §4.4.
func Promote(interim *Interim, answerSize int, items ...Finalizable) *Final {
	final := NewFinal(Round(answerSize) + interim.total)
	final.off = Round(answerSize)
	for _, it := range items {
		it.Finalize(final)
	}
	if final.Remaining() != 0 {
		panic("arena: interim allocations not fully consumed by finalizers")
	}
	interim.Reset()
	return final
}
