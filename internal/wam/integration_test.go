package wam_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sentra-lang/gowam/internal/builtin"
	"github.com/sentra-lang/gowam/internal/compiler"
	"github.com/sentra-lang/gowam/internal/prologread"
	"github.com/sentra-lang/gowam/internal/prologwrite"
	"github.com/sentra-lang/gowam/internal/wam"
	"github.com/sentra-lang/gowam/internal/wamerr"
)

// newEngine returns a state with src's clauses loaded and the core/
// domain built-ins registered.
func newEngine(t *testing.T, src string) *wam.State {
	t.Helper()
	s := wam.NewState()
	builtin.RegisterCore(s.Preds)

	clauses, err := prologread.ReadProgram(s.H, src)
	if err != nil {
		t.Fatalf("ReadProgram: %v", err)
	}
	type key struct {
		name  string
		arity int
	}
	grouped := make(map[key][]compiler.Clause)
	var order []key
	for _, ct := range clauses {
		head := s.H.Deref(ct.Head)
		var name string
		var arity int
		if head.IsCON() {
			name, arity = s.H.Atoms.Functor(head)
		} else {
			name, arity = s.H.FunctorName(head)
		}
		k := key{name, arity}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], compiler.Clause{Head: ct.Head, Body: ct.Body})
	}
	c := compiler.New(s.H)
	for _, k := range order {
		code, numRegs, err := c.CompilePredicate(k.name, k.arity, grouped[k])
		if err != nil {
			t.Fatalf("CompilePredicate %s/%d: %v", k.name, k.arity, err)
		}
		s.DefinePredicate(k.name, k.arity, code, numRegs)
	}
	return s
}

// runQuery compiles and runs query as a one-shot query, returning the
// parsed goal term as printed after the run (so its bindings show) and
// the query's outcome.
func runQuery(t *testing.T, s *wam.State, query string) (string, bool, error) {
	t.Helper()
	goal, err := prologread.ReadTerm(s.H, query)
	if err != nil {
		t.Fatalf("ReadTerm(%q): %v", query, err)
	}
	goals := compiler.FlattenBody(s.H, goal)
	code, numRegs, err := compiler.New(s.H).CompileQuery(goals)
	if err != nil {
		t.Fatalf("CompileQuery: %v", err)
	}
	ok, err := s.Execute(code, numRegs)
	w := prologwrite.New(s.H)
	return w.Term(goal), ok, err
}

func TestAppend(t *testing.T) {
	s := newEngine(t, `
		append([], Zs, Zs).
		append([X|Xs], Ys, [X|Zs]) :- append(Xs, Ys, Zs).
	`)
	got, ok, err := runQuery(t, s, "append([1,2,3],[4,5,6],Q).")
	if err != nil || !ok {
		t.Fatalf("append query failed: ok=%v err=%v", ok, err)
	}
	want := "append([1, 2, 3], [4, 5, 6], [1, 2, 3, 4, 5, 6])"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNrev(t *testing.T) {
	s := newEngine(t, `
		append([], Zs, Zs).
		append([X|Xs], Ys, [X|Zs]) :- append(Xs, Ys, Zs).
		nrev([], []).
		nrev([X|Xs], Ys) :- nrev(Xs, Rs), append(Rs, [X], Ys).
	`)
	got, ok, err := runQuery(t, s, "nrev([1,2,3],Q).")
	if err != nil || !ok {
		t.Fatalf("nrev query failed: ok=%v err=%v", ok, err)
	}
	want := "nrev([1, 2, 3], [3, 2, 1])"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMemberFirstSolution(t *testing.T) {
	s := newEngine(t, `
		member(X, [X|_]).
		member(X, [_|Xs]) :- member(X, Xs).
	`)
	// First clause binds Xs to [A|_] for a fresh tail variable — so the
	// two list-opening bytes and the repeated variable name are the
	// observable, index-naming-independent part of the shape.
	got, ok, err := runQuery(t, s, "member(A, Xs).")
	if err != nil || !ok {
		t.Fatalf("member query failed: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(got, "[") {
		t.Fatalf("expected Xs bound to a list, got %q", got)
	}
	head := got[strings.Index(got, "[")+1:]
	head = head[:strings.IndexAny(head, "|]")]
	varName := got[strings.Index(got, "(")+1 : strings.Index(got, ",")]
	if head != varName {
		t.Errorf("list head %q should be the same variable as A (%q): %q", head, varName, got)
	}
}

func TestUnifyNestedStructure(t *testing.T) {
	s := newEngine(t, "")
	got, ok, err := runQuery(t, s, "X = f(g(Y), Y), Y = 42.")
	if err != nil || !ok {
		t.Fatalf("unify query failed: ok=%v err=%v", ok, err)
	}
	// Both sides of the first unification, and Y itself, deref to the
	// same bound structure once printed — f(g(42), 42) appearing twice
	// and 42 on its own is the binding's observable signature.
	if strings.Count(got, "f(g(42), 42)") != 2 {
		t.Errorf("expected f(g(42), 42) to appear on both sides of X's binding: %q", got)
	}
	if !strings.Contains(got, "42, 42") {
		t.Errorf("expected Y's own binding 42 = 42 to appear: %q", got)
	}
}

func TestDeterministicQueryRestoresHeapAndTrail(t *testing.T) {
	// A single-clause predicate never gets a choice point (buildChain's
	// one-clause case skips try_me_else entirely), so every binding it
	// makes is younger than the (zero) heap mark and never reaches the
	// trail at all — trimming the heap back after such a query is
	// enough to restore both heap and trail to their pre-query state.
	s := newEngine(t, "greet(hello, world).")
	heapBefore := s.H.Size()
	trailBefore := s.Tr.Mark()

	_, ok, err := runQuery(t, s, "greet(hello, X).")
	if err != nil || !ok {
		t.Fatalf("greet(hello, X) failed: ok=%v err=%v", ok, err)
	}
	if s.H.Size() == heapBefore {
		t.Fatalf("expected heap growth while the query ran")
	}

	s.H.Trim(heapBefore)
	if s.H.Size() != heapBefore {
		t.Errorf("heap not restored: got size %d, want %d", s.H.Size(), heapBefore)
	}
	if s.Tr.Mark() != trailBefore {
		t.Errorf("trail not restored: got mark %d, want %d", s.Tr.Mark(), trailBefore)
	}
}

func TestUndefinedPredicateRaisesExistenceError(t *testing.T) {
	s := newEngine(t, "")
	_, ok, err := runQuery(t, s, "nope(1).")
	if ok {
		t.Fatalf("expected failure calling an undefined predicate")
	}
	if !wamerr.Is(err, wamerr.KindExistence) {
		t.Fatalf("expected existence_error, got %v", err)
	}

	// The interpreter must still be usable for a subsequent query.
	got, ok, err := runQuery(t, s, "X = 1.")
	if err != nil || !ok {
		t.Fatalf("query after existence_error failed: ok=%v err=%v", ok, err)
	}
	// X derefs to its binding (1) once printed, same as Q does in
	// TestAppend, and '=' is not a lowercase-leading atom so the writer
	// quotes it.
	if got != "'='(1, 1)" {
		t.Errorf("got %q", got)
	}
}

func TestGetResultRendersNamedBindings(t *testing.T) {
	s := newEngine(t, `
		append([], Zs, Zs).
		append([X|Xs], Ys, [X|Zs]) :- append(Xs, Ys, Zs).
	`)
	goal, vars, err := prologread.ReadTermWithBindings(s.H, "append([1,2],[3],Q).")
	if err != nil {
		t.Fatalf("ReadTermWithBindings: %v", err)
	}
	goals := compiler.FlattenBody(s.H, goal)
	code, numRegs, err := compiler.New(s.H).CompileQuery(goals)
	if err != nil {
		t.Fatalf("CompileQuery: %v", err)
	}
	ok, err := s.Execute(code, numRegs)
	if err != nil || !ok {
		t.Fatalf("query failed: ok=%v err=%v", ok, err)
	}

	got := s.GetResult(vars)
	want := "Q = [1, 2, 3]"
	if got != want {
		t.Errorf("GetResult() = %q, want %q", got, want)
	}

	var buf bytes.Buffer
	if err := s.PrintResult(&buf, vars); err != nil {
		t.Fatalf("PrintResult: %v", err)
	}
	if buf.String() != want+"\n" {
		t.Errorf("PrintResult wrote %q, want %q", buf.String(), want+"\n")
	}
}

func TestGetResultNoFreeVariablesIsTrue(t *testing.T) {
	s := newEngine(t, "")
	goal, vars, err := prologread.ReadTermWithBindings(s.H, "1 = 1.")
	if err != nil {
		t.Fatalf("ReadTermWithBindings: %v", err)
	}
	goals := compiler.FlattenBody(s.H, goal)
	code, numRegs, err := compiler.New(s.H).CompileQuery(goals)
	if err != nil {
		t.Fatalf("CompileQuery: %v", err)
	}
	ok, err := s.Execute(code, numRegs)
	if err != nil || !ok {
		t.Fatalf("query failed: ok=%v err=%v", ok, err)
	}
	if got := s.GetResult(vars); got != "true" {
		t.Errorf("GetResult() with no free variables = %q, want %q", got, "true")
	}
}

func TestPrintDBListsLoadedPredicates(t *testing.T) {
	s := newEngine(t, "greet(hello, world).")
	var buf bytes.Buffer
	if err := s.PrintDB(&buf); err != nil {
		t.Fatalf("PrintDB: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "greet/2") {
		t.Errorf("PrintDB output missing greet/2: %q", out)
	}
	if !strings.Contains(out, "=/2\tbuiltin(core)") {
		t.Errorf("PrintDB output missing the core =/2 builtin entry: %q", out)
	}
}

func TestDumpHeapWritesOneLinePerCell(t *testing.T) {
	s := newEngine(t, "")
	_, ok, err := runQuery(t, s, "X = f(1, 2).")
	if err != nil || !ok {
		t.Fatalf("query failed: ok=%v err=%v", ok, err)
	}
	var buf bytes.Buffer
	if err := s.DumpHeap(&buf); err != nil {
		t.Fatalf("DumpHeap: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != s.H.Size() {
		t.Errorf("DumpHeap wrote %d lines, want %d (one per heap cell)", len(lines), s.H.Size())
	}
}
