package wam

import (
	"fmt"
	"sort"
)

// Builtin is the signature every registered built-in function implements.
// It receives the machine state and the arity it was registered under; it
// reads arguments from s.A[0:arity]. It returns (true, nil) on success,
// (false, nil) on ordinary failure (recovered by backtracking like any
// failing instruction), or (false, err) to abort the query with a typed
// error (see package wamerr).
type Builtin func(s *State, arity int) (bool, error)

// Predicate is a predicate-table entry: either a compiled clause sequence
// or a registered built-in.
type Predicate struct {
	Code    []Instruction // nil for a built-in
	NumRegs int           // X register count the compiler allocated

	Module  string
	Fn      Builtin // nil for a compiled predicate
}

func (p *Predicate) IsBuiltin() bool { return p.Fn != nil }

// PredicateTable is the flat name/arity -> entry map spec.md §3.4
// describes. Module isolation beyond this single flat table is an
// explicit non-goal; the Module field on a built-in entry is a naming
// convention (e.g. "sys"), not an isolation boundary.
type PredicateTable struct {
	entries map[PredIndicator]*Predicate
}

// NewPredicateTable returns an empty table.
func NewPredicateTable() *PredicateTable {
	return &PredicateTable{entries: make(map[PredIndicator]*Predicate)}
}

// Lookup returns the entry for name/arity, or nil if undefined.
func (t *PredicateTable) Lookup(name string, arity int) *Predicate {
	return t.entries[PredIndicator{Name: name, Arity: arity}]
}

// Define installs (or overwrites) a compiled predicate's instruction
// stream, as produced by package compiler.
func (t *PredicateTable) Define(name string, arity int, code []Instruction, numRegs int) {
	t.entries[PredIndicator{Name: name, Arity: arity}] = &Predicate{Code: code, NumRegs: numRegs}
}

// LoadBuiltin registers fn under (module, name/arity) — the uniform
// built-in registration hook spec.md §1/§4.6 requires for domain
// collaborators (networking, cryptography, peer-book, mailboxes; see
// package builtin).
func (t *PredicateTable) LoadBuiltin(module, name string, arity int, fn Builtin) {
	t.entries[PredIndicator{Name: name, Arity: arity}] = &Predicate{Module: module, Fn: fn}
}

// Indicators returns every loaded predicate's indicator, sorted by
// name/arity for stable output — the listing PrintDB walks.
func (t *PredicateTable) Indicators() []PredIndicator {
	out := make([]PredIndicator, 0, len(t.entries))
	for p := range t.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Arity < out[j].Arity
	})
	return out
}

// String renders a PredIndicator as name/arity, for diagnostics and
// existence-error messages.
func (p PredIndicator) String() string {
	return fmt.Sprintf("%s/%d", p.Name, p.Arity)
}
