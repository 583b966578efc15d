// Package unify implements unification and the binding trail: the
// machinery that makes backtracking possible by recording every binding
// so it can be undone in order.
package unify

import (
	"github.com/sentra-lang/gowam/internal/cell"
	"github.com/sentra-lang/gowam/internal/heap"
)

// Trail is a stack of heap indices whose bindings must be undone on
// backtrack.
type Trail struct {
	entries []int
}

// NewTrail returns an empty trail.
func NewTrail() *Trail { return &Trail{} }

// Mark returns the current trail position (TR).
func (tr *Trail) Mark() int { return len(tr.entries) }

// Push records a bound heap index on the trail.
func (tr *Trail) Push(index int) { tr.entries = append(tr.entries, index) }

// Unwind pops trail entries back down to mark, unbinding each recorded
// index to a self-REF (restoring it to unbound).
func (tr *Trail) Unwind(h *heap.Heap, mark int) {
	for len(tr.entries) > mark {
		last := len(tr.entries) - 1
		idx := tr.entries[last]
		tr.entries = tr.entries[:last]
		h.Set(idx, cell.Ref(idx))
	}
}

// Unify attempts to unify a and b on h, recording bindings on tr. It
// performs no occurs check, matching the classical WAM. hMark is the
// heap mark (H) at choice-point creation time: bindings to cells younger
// than hMark need no trail entry, since backtracking will trim the heap
// back past them anyway.
func Unify(h *heap.Heap, tr *Trail, hMark int, a, b cell.Cell) bool {
	a = h.Deref(a)
	b = h.Deref(b)
	if a == b {
		return true
	}
	if a.IsREF() {
		if b.IsREF() {
			// Bind the younger (higher-index) cell into the older one, so
			// that bindings consistently point toward the structure most
			// likely to survive a later trim.
			if a.Index() < b.Index() {
				return bind(h, tr, hMark, b.Index(), a)
			}
			return bind(h, tr, hMark, a.Index(), b)
		}
		return bind(h, tr, hMark, a.Index(), b)
	}
	if b.IsREF() {
		return bind(h, tr, hMark, b.Index(), a)
	}
	if a.IsINT() && b.IsINT() {
		return a.IntValue() == b.IntValue()
	}
	if a.IsCON() && b.IsCON() {
		nameA, arityA := h.Atoms.Functor(a)
		nameB, arityB := h.Atoms.Functor(b)
		return nameA == nameB && arityA == arityB
	}
	if a.IsSTR() && b.IsSTR() {
		nameA, arityA := h.FunctorName(a)
		nameB, arityB := h.FunctorName(b)
		if nameA != nameB || arityA != arityB {
			return false
		}
		for i := 0; i < arityA; i++ {
			if !Unify(h, tr, hMark, h.Arg(a, i), h.Arg(b, i)) {
				return false
			}
		}
		return true
	}
	return false
}

func bind(h *heap.Heap, tr *Trail, hMark, refIndex int, value cell.Cell) bool {
	h.Set(refIndex, value)
	if refIndex < hMark {
		tr.Push(refIndex)
	}
	return true
}
