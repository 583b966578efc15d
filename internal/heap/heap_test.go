package heap

import (
	"testing"

	"github.com/sentra-lang/gowam/internal/cell"
)

func TestNewRefIsUnbound(t *testing.T) {
	h := New()
	r := h.NewRef()
	if h.Deref(r) != r {
		t.Fatalf("fresh ref should be self-bound (unbound)")
	}
}

func TestNewStrAndArg(t *testing.T) {
	h := New()
	x := h.NewRef()
	y := h.NewInt(42)
	s := h.NewStr("f", []cell.Cell{x, y})
	if !s.IsSTR() {
		t.Fatalf("NewStr should return STR cell")
	}
	if !h.CheckFunctor(s) {
		t.Fatalf("CheckFunctor should hold for freshly built structure")
	}
	name, arity := h.FunctorName(s)
	if name != "f" || arity != 2 {
		t.Fatalf("FunctorName = (%q,%d), want (f,2)", name, arity)
	}
	if h.Arg(s, 0) != x {
		t.Fatalf("Arg(0) mismatch")
	}
	if h.Arg(s, 1) != y {
		t.Fatalf("Arg(1) mismatch")
	}
}

func TestDerefFollowsChain(t *testing.T) {
	h := New()
	a := h.NewRef()
	b := h.NewRef()
	// bind a -> b
	h.Set(a.Index(), b)
	c := h.NewInt(7)
	h.Set(b.Index(), c)
	if got := h.Deref(a); got != c {
		t.Fatalf("Deref(a) = %v, want %v", got, c)
	}
}

func TestIsList(t *testing.T) {
	h := New()
	nil1 := h.NilAtom()
	if !h.IsList(nil1) {
		t.Fatalf("[] should be a list")
	}
	tail := h.NilAtom()
	cons := h.NewStr(".", []cell.Cell{h.NewInt(1), tail})
	if !h.IsList(cons) {
		t.Fatalf(".(1,[]) should be a list")
	}
	notList := h.NewStr("f", []cell.Cell{h.NewInt(1)})
	if h.IsList(notList) {
		t.Fatalf("f(1) should not be a list")
	}
}

func TestTrimRestoresSize(t *testing.T) {
	h := New()
	mark := h.Size()
	h.NewRef()
	h.NewStr("foo", []cell.Cell{h.NewInt(1), h.NewInt(2)})
	if h.Size() == mark {
		t.Fatalf("heap should have grown")
	}
	h.Trim(mark)
	if h.Size() != mark {
		t.Fatalf("Trim did not restore size: got %d want %d", h.Size(), mark)
	}
}

func TestBlockBoundaryKeepsStructureContiguous(t *testing.T) {
	h := New()
	// Push cells until we're one short of a block boundary, then build a
	// structure that wouldn't otherwise fit contiguously.
	for h.Size()%blockSize != blockSize-1 {
		h.NewRef()
	}
	s := h.NewStr("pair", []cell.Cell{h.NewInt(1), h.NewInt(2)})
	if !h.CheckFunctor(s) {
		t.Fatalf("structure should remain contiguous across a block boundary")
	}
	name, arity := h.FunctorName(s)
	if name != "pair" || arity != 2 {
		t.Fatalf("FunctorName after boundary padding = (%q,%d)", name, arity)
	}
}
