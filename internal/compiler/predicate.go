package compiler

import (
	"fmt"

	"github.com/sentra-lang/gowam/internal/cell"
	"github.com/sentra-lang/gowam/internal/wam"
	"github.com/sentra-lang/gowam/internal/wamerr"
)

// argKind classifies a clause's first head argument for first-argument
// indexing: an unbound variable can match any caller argument, so it
// joins every bucket; a bound constant or structure only joins its own.
type argKind int

const (
	argVar argKind = iota
	argConst
	argStruct
)

type firstArgClass struct {
	kind argKind
	key  string // set for argConst/argStruct; matches switchKey in package wam
}

func classifyFirstArg(c *Compiler, head cell.Cell) firstArgClass {
	a := c.h.Deref(c.h.Arg(head, 0))
	switch {
	case a.IsREF():
		return firstArgClass{kind: argVar}
	case a.IsINT():
		return firstArgClass{kind: argConst, key: fmt.Sprintf("#%d", a.IntValue())}
	case a.IsSTR():
		name, arity := c.h.FunctorName(a)
		return firstArgClass{kind: argStruct, key: fmt.Sprintf("%s/%d", name, arity)}
	default: // CON
		name, arity := c.h.Atoms.Functor(a)
		return firstArgClass{kind: argConst, key: fmt.Sprintf("%s/%d", name, arity)}
	}
}

// CompilePredicate compiles every clause of one name/arity predicate and
// assembles them into a single instruction stream with first-argument
// indexing (spec.md's switch_on_term/switch_on_constant/
// switch_on_structure family) when it can actually prune some clauses;
// otherwise clauses are simply chained by try_me_else/retry_me_else/
// trust_me in definition order. The returned NumRegs is the maximum X
// register count any one clause needs — dispatch (package wam) resizes
// the X window to this on every call or backtrack into the predicate.
func (c *Compiler) CompilePredicate(name string, arity int, clauses []Clause) ([]wam.Instruction, int, error) {
	if len(clauses) == 0 {
		return nil, 0, wamerr.Compile(fmt.Sprintf("predicate %s has no clauses", wam.PredIndicator{Name: name, Arity: arity}))
	}

	codes := make([][]wam.Instruction, len(clauses))
	maxRegs := 0
	for i, cl := range clauses {
		if err := c.validateHead(cl.Head, name, arity); err != nil {
			return nil, 0, err
		}
		for _, g := range cl.Body {
			if err := c.validateGoal(g); err != nil {
				return nil, 0, err
			}
		}
		code, regs, err := c.compileClauseBody(cl.Head, cl.Body, arity)
		if err != nil {
			return nil, 0, err
		}
		codes[i] = code
		if regs > maxRegs {
			maxRegs = regs
		}
	}

	if arity == 0 || len(clauses) == 1 {
		var final []wam.Instruction
		appendChain(&final, buildChain(allIndices(len(clauses)), codes))
		return final, maxRegs, nil
	}

	classes := make([]firstArgClass, len(clauses))
	var constKeys, structKeys []string
	seenConst := map[string]bool{}
	seenStruct := map[string]bool{}
	anyNonVar := false
	for i, cl := range clauses {
		classes[i] = classifyFirstArg(c, cl.Head)
		switch classes[i].kind {
		case argConst:
			anyNonVar = true
			if !seenConst[classes[i].key] {
				seenConst[classes[i].key] = true
				constKeys = append(constKeys, classes[i].key)
			}
		case argStruct:
			anyNonVar = true
			if !seenStruct[classes[i].key] {
				seenStruct[classes[i].key] = true
				structKeys = append(structKeys, classes[i].key)
			}
		}
	}
	if !anyNonVar {
		var final []wam.Instruction
		appendChain(&final, buildChain(allIndices(len(clauses)), codes))
		return final, maxRegs, nil
	}

	var final []wam.Instruction
	switchIdx := len(final)
	final = append(final, wam.Instruction{Op: wam.OpSwitchOnTerm})

	// An unbound caller argument could match any clause.
	varOffset := appendChain(&final, buildChain(allIndices(len(clauses)), codes))

	// A constant/structure key the compiler never saw can still match a
	// var-headed clause; this chain is the switch tables' fallback.
	var varOnly []int
	for i, cls := range classes {
		if cls.kind == argVar {
			varOnly = append(varOnly, i)
		}
	}
	varOnlyOffset := -1
	if len(varOnly) > 0 {
		varOnlyOffset = appendChain(&final, buildChain(varOnly, codes))
	}

	merged := func(key string) []int {
		var idxs []int
		for i, cls := range classes {
			if cls.kind == argVar || cls.key == key {
				idxs = append(idxs, i)
			}
		}
		return idxs
	}

	constOffset := -1
	if len(constKeys) > 0 {
		constOffset = len(final)
		final = append(final, wam.Instruction{Op: wam.OpSwitchOnConstant, Label: varOnlyOffset, SwitchTable: map[string]int{}})
		for _, key := range constKeys {
			off := appendChain(&final, buildChain(merged(key), codes))
			final[constOffset].SwitchTable[key] = off
		}
	}

	structOffset := -1
	if len(structKeys) > 0 {
		structOffset = len(final)
		final = append(final, wam.Instruction{Op: wam.OpSwitchOnStructure, Label: varOnlyOffset, SwitchTable: map[string]int{}})
		for _, key := range structKeys {
			off := appendChain(&final, buildChain(merged(key), codes))
			final[structOffset].SwitchTable[key] = off
		}
	}

	// A tag with no table of its own still reaches the var-headed clauses.
	if constOffset < 0 {
		constOffset = varOnlyOffset
	}
	if structOffset < 0 {
		structOffset = varOnlyOffset
	}
	final[switchIdx] = wam.Instruction{
		Op: wam.OpSwitchOnTerm,
		SwitchTerm: wam.SwitchOnTermTargets{
			Var: varOffset, Con: constOffset, List: structOffset, Struct: structOffset,
		},
	}
	return final, maxRegs, nil
}

// buildChain assembles an ordered subset of already-compiled clause
// bodies into one try_me_else/retry_me_else/trust_me chain, with Labels
// relative to the chain's own start (offset 0). A single-clause chain
// needs no choice point at all — the indexing win spec.md's first-
// argument indexing section describes for a fully deterministic call.
func buildChain(clauseIdxs []int, codes [][]wam.Instruction) []wam.Instruction {
	n := len(clauseIdxs)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return append([]wam.Instruction(nil), codes[clauseIdxs[0]]...)
	}

	offsets := make([]int, n)
	cur := 0
	for i, ci := range clauseIdxs {
		offsets[i] = cur
		cur += 1 + len(codes[ci])
	}

	var out []wam.Instruction
	for i, ci := range clauseIdxs {
		var in wam.Instruction
		switch {
		case i == 0:
			in = wam.Instruction{Op: wam.OpTryMeElse, Label: offsets[i+1]}
		case i == n-1:
			in = wam.Instruction{Op: wam.OpTrustMe}
		default:
			in = wam.Instruction{Op: wam.OpRetryMeElse, Label: offsets[i+1]}
		}
		out = append(out, in)
		out = append(out, codes[ci]...)
	}
	return out
}

// appendChain copies chain onto the end of final, rewriting its
// try_me_else/retry_me_else Labels from chain-local offsets to absolute
// offsets in final, and returns the base offset chain now starts at.
func appendChain(final *[]wam.Instruction, chain []wam.Instruction) int {
	base := len(*final)
	for _, in := range chain {
		if in.Op == wam.OpTryMeElse || in.Op == wam.OpRetryMeElse {
			in.Label += base
		}
		*final = append(*final, in)
	}
	return base
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
