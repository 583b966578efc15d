package unify

import (
	"testing"

	"github.com/sentra-lang/gowam/internal/cell"
	"github.com/sentra-lang/gowam/internal/heap"
)

func TestUnifyVarConst(t *testing.T) {
	h := heap.New()
	tr := NewTrail()
	x := h.NewRef()
	c := h.NewInt(42)
	if !Unify(h, tr, 0, x, c) {
		t.Fatalf("unify(var, 42) should succeed")
	}
	if h.Deref(x) != c {
		t.Fatalf("x should be bound to 42")
	}
}

func TestUnifyStructures(t *testing.T) {
	h := heap.New()
	tr := NewTrail()
	y := h.NewRef()
	s1 := h.NewStr("f", []cell.Cell{h.NewInt(1), y})
	s2 := h.NewStr("f", []cell.Cell{h.NewInt(1), h.NewInt(2)})
	if !Unify(h, tr, 0, s1, s2) {
		t.Fatalf("unify(f(1,Y), f(1,2)) should succeed")
	}
	if h.Deref(y).IntValue() != 2 {
		t.Fatalf("Y should be bound to 2")
	}
}

func TestUnifyFailsOnMismatchedFunctor(t *testing.T) {
	h := heap.New()
	tr := NewTrail()
	s1 := h.NewStr("f", []cell.Cell{h.NewInt(1)})
	s2 := h.NewStr("g", []cell.Cell{h.NewInt(1)})
	if Unify(h, tr, 0, s1, s2) {
		t.Fatalf("unify(f(1), g(1)) should fail")
	}
}

func TestTrailUnwindRestoresUnbound(t *testing.T) {
	h := heap.New()
	tr := NewTrail()
	mark := tr.Mark()
	x := h.NewRef()
	hMark := h.Size() // x is older than this mark, so its binding is trailed
	if !Unify(h, tr, hMark, x, h.NewInt(1)) {
		t.Fatalf("unify should succeed")
	}
	tr.Unwind(h, mark)
	if h.Deref(x) != x {
		t.Fatalf("x should be unbound again after unwind")
	}
}

func TestUnifyRoundTripLaw(t *testing.T) {
	h := heap.New()
	tr := NewTrail()
	x := h.NewRef()
	y := h.NewRef()
	if !Unify(h, tr, 0, x, y) {
		t.Fatalf("unify(X,Y) should succeed")
	}
	if h.Deref(x) != h.Deref(y) {
		t.Fatalf("deref(x) should equal deref(y) after unify")
	}
}

func TestBindingYoungerThanMarkSkipsTrail(t *testing.T) {
	h := heap.New()
	tr := NewTrail()
	hMark := h.Size() // nothing allocated yet before this mark
	x := h.NewRef()    // allocated at/after hMark: binding it needs no trail entry
	before := tr.Mark()
	Unify(h, tr, hMark, x, h.NewInt(9))
	if tr.Mark() != before {
		t.Fatalf("binding a cell younger than H should not grow the trail")
	}
}
