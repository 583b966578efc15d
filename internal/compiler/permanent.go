package compiler

import (
	"github.com/sentra-lang/gowam/internal/cell"
	"github.com/sentra-lang/gowam/internal/heap"
)

// computePermanent implements the classical permanent-variable rule: a
// clause's head is chunk 0, each body goal is the next chunk in order,
// and a variable that occurs in two or more chunks must survive at least
// one intervening call instruction (which clobbers every X register), so
// it is promoted to a permanent (Y) environment slot. Y indices are
// assigned in first-occurrence order across (head, goal1, goal2, ...).
//
// Only called for clauses with two or more body goals — see the
// needsEnv note in clause.go's compileClauseBody for why shorter clauses need no
// environment at all.
func computePermanent(h *heap.Heap, headArgs []cell.Cell, bodyGoals []cell.Cell) map[int]int {
	chunksOf := make(map[int]map[int]bool)
	var order []int

	mark := func(key, chunk int) {
		set := chunksOf[key]
		if set == nil {
			set = make(map[int]bool)
			chunksOf[key] = set
			order = append(order, key)
		}
		set[chunk] = true
	}

	var walk func(t cell.Cell, chunk int)
	walk = func(t cell.Cell, chunk int) {
		t = h.Deref(t)
		switch {
		case t.IsREF():
			mark(t.Index(), chunk)
		case t.IsSTR():
			_, arity := h.FunctorName(t)
			for i := 0; i < arity; i++ {
				walk(h.Arg(t, i), chunk)
			}
		}
	}

	for _, a := range headArgs {
		walk(a, 0)
	}
	for gi, g := range bodyGoals {
		g = h.Deref(g)
		if g.IsSTR() {
			_, arity := h.FunctorName(g)
			for i := 0; i < arity; i++ {
				walk(h.Arg(g, i), gi+1)
			}
		}
	}

	perm := make(map[int]int)
	next := 0
	for _, key := range order {
		if len(chunksOf[key]) >= 2 {
			perm[key] = next
			next++
		}
	}
	return perm
}
