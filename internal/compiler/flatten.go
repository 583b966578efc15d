package compiler

import (
	"github.com/sentra-lang/gowam/internal/cell"
	"github.com/sentra-lang/gowam/internal/heap"
)

// FlattenBody splits a clause body into its ordered list of goals,
// descending a right-associated ','/2 spine. A bare true/0 body (the
// canonical "empty body") yields a nil slice, matching a fact's
// zero-goal clause.
func FlattenBody(h *heap.Heap, body cell.Cell) []cell.Cell {
	body = h.Deref(body)
	if body.IsCON() {
		if name, arity := h.Atoms.Functor(body); name == "true" && arity == 0 {
			return nil
		}
	}
	var goals []cell.Cell
	var walk func(t cell.Cell)
	walk = func(t cell.Cell) {
		t = h.Deref(t)
		if h.CheckFunctor(t) {
			if name, arity := h.FunctorName(t); name == "," && arity == 2 {
				walk(h.Arg(t, 0))
				walk(h.Arg(t, 1))
				return
			}
		}
		goals = append(goals, t)
	}
	walk(body)
	return goals
}
