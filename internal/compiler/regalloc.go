package compiler

import "github.com/sentra-lang/gowam/internal/wam"

// regAlloc assigns register homes to a single clause's variables as they
// are first encountered during emission. Permanent (Y) homes are decided
// up front by a chunk analysis (see permanent.go); everything else is a
// temporary (X), numbered densely in first-occurrence order — the
// "renumbering pass" spec.md §4.5 describes falls out of assigning X
// slots on demand rather than as a separate later pass.
//
// A variable is identified by the heap index of its own (always-unbound,
// self-referencing) REF cell in the clause's template term.
type regAlloc struct {
	permanent map[int]int // varKey -> Y index
	xSlots    map[int]int // varKey -> X index, for non-permanent variables
	seen      map[int]bool
	nextX     int
}

func newRegAlloc(permanent map[int]int) *regAlloc {
	return &regAlloc{
		permanent: permanent,
		xSlots:    make(map[int]int),
		seen:      make(map[int]bool),
	}
}

// homeFor returns the register a variable lives in and whether this is
// its first occurrence in the clause (the get_variable/put_variable vs.
// get_value/put_value/unify_local_value distinction turns on this).
func (ra *regAlloc) homeFor(varKey int) (kind wam.RegKind, idx int, first bool) {
	first = !ra.seen[varKey]
	ra.seen[varKey] = true

	if y, ok := ra.permanent[varKey]; ok {
		return wam.RegY, y, first
	}
	if x, ok := ra.xSlots[varKey]; ok {
		return wam.RegX, x, first
	}
	x := ra.nextX
	ra.nextX++
	ra.xSlots[varKey] = x
	return wam.RegX, x, first
}

// newHandle allocates a fresh, always-temporary register for a
// compiler-synthetic subterm handle (a flattened nested structure has no
// source variable of its own).
func (ra *regAlloc) newHandle() int {
	x := ra.nextX
	ra.nextX++
	return x
}
