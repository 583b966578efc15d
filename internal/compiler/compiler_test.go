package compiler

import (
	"testing"

	"github.com/sentra-lang/gowam/internal/cell"
	"github.com/sentra-lang/gowam/internal/heap"
	"github.com/sentra-lang/gowam/internal/wam"
)

func TestFlattenBodyEmptyForBareTrue(t *testing.T) {
	h := heap.New()
	goals := FlattenBody(h, h.NewAtom("true"))
	if goals != nil {
		t.Fatalf("true/0 body should flatten to nil, got %v", goals)
	}
}

func TestFlattenBodySplitsConjunctionInOrder(t *testing.T) {
	h := heap.New()
	g1 := h.NewAtom("a")
	g2 := h.NewAtom("b")
	g3 := h.NewAtom("c")
	body := h.NewStr(",", []cell.Cell{g1, h.NewStr(",", []cell.Cell{g2, g3})})
	goals := FlattenBody(h, body)
	if len(goals) != 3 {
		t.Fatalf("expected 3 goals, got %d", len(goals))
	}
	if goals[0] != g1 || goals[1] != g2 || goals[2] != g3 {
		t.Fatalf("goals out of order: %v", goals)
	}
}

// TestComputePermanentPromotesMultiChunkVariable builds the equivalent of
// p(X) :- foo(X), bar(X). — X occurs in the head (chunk 0) and in both
// body goals (chunks 1 and 2), so it must survive the call to foo/1 and
// needs a permanent Y slot.
func TestComputePermanentPromotesMultiChunkVariable(t *testing.T) {
	h := heap.New()
	x := h.NewRef()
	headArgs := []cell.Cell{x}
	g1 := h.NewStr("foo", []cell.Cell{x})
	g2 := h.NewStr("bar", []cell.Cell{x})

	perm := computePermanent(h, headArgs, []cell.Cell{g1, g2})
	if _, ok := perm[x.Index()]; !ok {
		t.Fatalf("X occurs across 3 chunks and must be permanent: %v", perm)
	}
}

// TestComputePermanentSkipsSingleChunkVariable builds p(X) :- foo(X,Y),
// bar(X). — Y occurs only inside goal 1's single chunk, so it never needs
// to survive a call and stays temporary.
func TestComputePermanentSkipsSingleChunkVariable(t *testing.T) {
	h := heap.New()
	x := h.NewRef()
	y := h.NewRef()
	headArgs := []cell.Cell{x}
	g1 := h.NewStr("foo", []cell.Cell{x, y})
	g2 := h.NewStr("bar", []cell.Cell{x})

	perm := computePermanent(h, headArgs, []cell.Cell{g1, g2})
	if _, ok := perm[y.Index()]; ok {
		t.Fatalf("Y only occurs in one chunk and must stay temporary: %v", perm)
	}
	if _, ok := perm[x.Index()]; !ok {
		t.Fatalf("X spans head + both goals and must be permanent: %v", perm)
	}
}

// TestComputePermanentOrdersByFirstOccurrence checks that Y slots are
// handed out 0, 1, 2, ... in the order each permanent variable is first
// seen across (head, goal1, goal2, ...), not in heap-allocation order.
func TestComputePermanentOrdersByFirstOccurrence(t *testing.T) {
	h := heap.New()
	b := h.NewRef() // allocated first...
	a := h.NewRef() // ...but occurs second in the head argument list
	headArgs := []cell.Cell{a, b}
	g1 := h.NewStr("foo", []cell.Cell{a})
	g2 := h.NewStr("bar", []cell.Cell{b})

	perm := computePermanent(h, headArgs, []cell.Cell{g1, g2})
	if perm[a.Index()] != 0 {
		t.Errorf("a (first head arg, first occurrence) should get Y0, got Y%d", perm[a.Index()])
	}
	if perm[b.Index()] != 1 {
		t.Errorf("b (second head arg) should get Y1, got Y%d", perm[b.Index()])
	}
}

func TestRegAllocFirstOccurrenceFlag(t *testing.T) {
	ra := newRegAlloc(map[int]int{})
	_, _, first := ra.homeFor(10)
	if !first {
		t.Fatalf("first call to homeFor(10) should report first=true")
	}
	_, _, first = ra.homeFor(10)
	if first {
		t.Fatalf("second call to homeFor(10) should report first=false")
	}
}

func TestRegAllocPermanentTakesPrecedenceOverX(t *testing.T) {
	ra := newRegAlloc(map[int]int{7: 3})
	kind, idx, _ := ra.homeFor(7)
	if kind != wam.RegY || idx != 3 {
		t.Fatalf("variable 7 is permanent at Y3, got kind=%v idx=%d", kind, idx)
	}
	// A non-permanent variable still gets a densely numbered X slot
	// starting at 0, independent of the permanent map's indices.
	kind, idx, _ = ra.homeFor(8)
	if kind != wam.RegX || idx != 0 {
		t.Fatalf("variable 8 should be the first X slot (X0), got kind=%v idx=%d", kind, idx)
	}
}

func TestRegAllocNewHandleSharesCounterWithX(t *testing.T) {
	ra := newRegAlloc(map[int]int{})
	_, idx0, _ := ra.homeFor(1) // X0
	if idx0 != 0 {
		t.Fatalf("first temporary should be X0, got X%d", idx0)
	}
	h1 := ra.newHandle() // must not collide with X0
	if h1 != 1 {
		t.Fatalf("newHandle should continue the same counter as homeFor, got X%d", h1)
	}
	_, idx2, _ := ra.homeFor(2)
	if idx2 != 2 {
		t.Fatalf("a variable allocated after a handle should get X2, got X%d", idx2)
	}
}

func TestClassifyFirstArgVariable(t *testing.T) {
	h := heap.New()
	c := New(h)
	head := h.NewStr("p", []cell.Cell{h.NewRef()})
	got := classifyFirstArg(c, head)
	if got.kind != argVar {
		t.Fatalf("p(X) should classify as argVar, got %v", got)
	}
}

func TestClassifyFirstArgIntConstant(t *testing.T) {
	h := heap.New()
	c := New(h)
	head := h.NewStr("p", []cell.Cell{h.NewInt(42)})
	got := classifyFirstArg(c, head)
	if got.kind != argConst || got.key != "#42" {
		t.Fatalf("p(42) should classify as argConst key #42, got %+v", got)
	}
}

func TestClassifyFirstArgAtomConstant(t *testing.T) {
	h := heap.New()
	c := New(h)
	head := h.NewStr("p", []cell.Cell{h.NewAtom("foo")})
	got := classifyFirstArg(c, head)
	if got.kind != argConst || got.key != "foo/0" {
		t.Fatalf("p(foo) should classify as argConst key foo/0, got %+v", got)
	}
}

func TestClassifyFirstArgStructure(t *testing.T) {
	h := heap.New()
	c := New(h)
	inner := h.NewStr("foo", []cell.Cell{h.NewInt(1)})
	head := h.NewStr("p", []cell.Cell{inner})
	got := classifyFirstArg(c, head)
	if got.kind != argStruct || got.key != "foo/1" {
		t.Fatalf("p(foo(1)) should classify as argStruct key foo/1, got %+v", got)
	}
}

// TestBuildChainSingleClauseSkipsChoicePoint confirms the indexing win a
// single matching clause gets: no try_me_else/trust_me wrapper at all,
// just the clause's own code copied through.
func TestBuildChainSingleClauseSkipsChoicePoint(t *testing.T) {
	codes := [][]wam.Instruction{{{Op: wam.OpProceed}}}
	out := buildChain([]int{0}, codes)
	if len(out) != 1 || out[0].Op != wam.OpProceed {
		t.Fatalf("single-clause chain should be exactly the clause's code, got %v", out)
	}
}

// TestBuildChainMultiClauseWrapsWithChoicePoints confirms a 2-clause
// chain gets a try_me_else/trust_me pair with the first's Label pointing
// past its own clause code to the second's try_me_else-equivalent slot.
func TestBuildChainMultiClauseWrapsWithChoicePoints(t *testing.T) {
	codes := [][]wam.Instruction{
		{{Op: wam.OpProceed}},
		{{Op: wam.OpProceed}},
	}
	out := buildChain([]int{0, 1}, codes)
	if len(out) != 4 {
		t.Fatalf("expected 4 instructions (try+clause+trust+clause), got %d: %v", len(out), out)
	}
	if out[0].Op != wam.OpTryMeElse || out[0].Label != 2 {
		t.Fatalf("expected try_me_else with Label=2, got %+v", out[0])
	}
	if out[1].Op != wam.OpProceed {
		t.Fatalf("expected first clause's code at offset 1, got %+v", out[1])
	}
	if out[2].Op != wam.OpTrustMe {
		t.Fatalf("expected trust_me at offset 2, got %+v", out[2])
	}
	if out[3].Op != wam.OpProceed {
		t.Fatalf("expected second clause's code at offset 3, got %+v", out[3])
	}
}

// TestAppendChainRebasesLabels confirms appendChain shifts a chain's
// try_me_else/retry_me_else Labels by the destination slice's current
// length rather than copying them as chain-local offsets.
func TestAppendChainRebasesLabels(t *testing.T) {
	codes := [][]wam.Instruction{
		{{Op: wam.OpProceed}},
		{{Op: wam.OpProceed}},
	}
	chain := buildChain([]int{0, 1}, codes)

	var final []wam.Instruction
	final = append(final, wam.Instruction{Op: wam.OpFail}) // padding before the chain
	base := appendChain(&final, chain)
	if base != 1 {
		t.Fatalf("expected chain to start at offset 1, got %d", base)
	}
	if final[1].Op != wam.OpTryMeElse || final[1].Label != 3 {
		t.Fatalf("expected rebased try_me_else Label=3, got %+v", final[1])
	}
}

func TestAllIndices(t *testing.T) {
	got := allIndices(3)
	want := []int{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("allIndices(3) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("allIndices(3) = %v, want %v", got, want)
		}
	}
}
