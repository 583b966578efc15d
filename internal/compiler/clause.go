package compiler

import (
	"github.com/sentra-lang/gowam/internal/cell"
	"github.com/sentra-lang/gowam/internal/heap"
	"github.com/sentra-lang/gowam/internal/wam"
	"github.com/sentra-lang/gowam/internal/wamerr"
)

// Compiler turns heap-resident clause terms into WAM instruction
// sequences. One Compiler is bound to exactly one Heap — clause terms it
// compiles must already live on that heap (spec.md §6: the loader builds
// clause terms the same way a query builds its goal).
type Compiler struct {
	h *heap.Heap
}

// New returns a compiler that reads clause terms from h.
func New(h *heap.Heap) *Compiler {
	return &Compiler{h: h}
}

// Clause is one clause of a predicate: a head term and its already
// flattened body (see FlattenBody). A nil/empty Body compiles as a fact.
type Clause struct {
	Head cell.Cell
	Body []cell.Cell
}

// CompileQuery compiles a top-level goal list. Each goal's arguments are
// passed as the very heap cells the query was parsed into (put_constant
// of the argument cell, then call), so the query's own variables are
// bound in place and the caller can read them back after Execute. The
// goals run inside one environment frame whose only job is to keep
// Execute's halt sentinel as the continuation: deallocate restores it
// and the final proceed halts. The query needs no X registers.
func (c *Compiler) CompileQuery(goals []cell.Cell) ([]wam.Instruction, int, error) {
	for _, g := range goals {
		if err := c.validateGoal(g); err != nil {
			return nil, 0, err
		}
	}
	code := []wam.Instruction{{Op: wam.OpAllocate}}
	for _, g := range goals {
		for i, a := range goalArgs(c.h, g) {
			code = append(code, wam.Instruction{Op: wam.OpPutConstant, Const: a, Reg2: i, Reg2Kind: wam.RegA})
		}
		code = append(code, wam.Instruction{Op: wam.OpCall, Pred: goalIndicator(c.h, g)})
	}
	code = append(code, wam.Instruction{Op: wam.OpDeallocate}, wam.Instruction{Op: wam.OpProceed})
	return code, 0, nil
}

// compileClauseBody compiles one clause into a standalone instruction
// sequence and the number of X registers it needs. headArity is the
// predicate's declared arity (0 for a bare-atom head).
func (c *Compiler) compileClauseBody(head cell.Cell, body []cell.Cell, headArity int) ([]wam.Instruction, int, error) {
	var headArgs []cell.Cell
	if headArity > 0 {
		headArgs = make([]cell.Cell, headArity)
		for i := range headArgs {
			headArgs[i] = c.h.Arg(head, i)
		}
	}

	// Two or more body goals means at least one non-tail call, which
	// clobbers every X register; only then can a variable need a
	// permanent home to survive past it. Facts and single-goal (tail
	// call only, compiled via execute — no intervening call at all)
	// clauses need neither permanent variables nor an environment frame,
	// the optimization spec.md §9's open question allows.
	needsEnv := len(body) >= 2
	var permanent map[int]int
	if needsEnv {
		permanent = computePermanent(c.h, headArgs, body)
	} else {
		permanent = map[int]int{}
	}

	ra := newRegAlloc(permanent)
	var code []wam.Instruction
	emit := func(in wam.Instruction) { code = append(code, in) }

	if needsEnv {
		emit(wam.Instruction{Op: wam.OpAllocate, NVars: len(permanent)})
	}

	for i, arg := range headArgs {
		c.compileGetTerm(ra, arg, wam.RegA, i, emit)
	}

	for gi, g := range body {
		args := goalArgs(c.h, g)
		for i, a := range args {
			c.compilePutTerm(ra, a, wam.RegA, i, emit)
		}
		pred := goalIndicator(c.h, g)
		last := gi == len(body)-1
		if !last {
			emit(wam.Instruction{Op: wam.OpCall, Pred: pred, NVars: len(permanent)})
			continue
		}
		if needsEnv {
			emit(wam.Instruction{Op: wam.OpDeallocate})
		}
		emit(wam.Instruction{Op: wam.OpExecute, Pred: pred})
	}

	if len(body) == 0 {
		emit(wam.Instruction{Op: wam.OpProceed})
	}

	return code, ra.nextX, nil
}

// compileGetTerm compiles one head-side term against dst (an A register
// at the top level, or a synthetic handle register for a flattened
// nested structure — get_structure/get_constant/get_value operate on any
// register per spec.md §3.3's permission to keep A and X separate).
func (c *Compiler) compileGetTerm(ra *regAlloc, term cell.Cell, dstKind wam.RegKind, dst int, emit func(wam.Instruction)) {
	term = c.h.Deref(term)
	switch {
	case term.IsREF():
		kind, idx, first := ra.homeFor(term.Index())
		if first {
			op := wam.OpGetVariableX
			if kind == wam.RegY {
				op = wam.OpGetVariableY
			}
			emit(wam.Instruction{Op: op, Reg1: idx, Reg1Kind: kind, Reg2: dst, Reg2Kind: dstKind})
		} else {
			op := wam.OpGetValueX
			if kind == wam.RegY {
				op = wam.OpGetValueY
			}
			emit(wam.Instruction{Op: op, Reg1: idx, Reg1Kind: kind, Reg2: dst, Reg2Kind: dstKind})
		}

	case term.IsSTR():
		name, arity := c.h.FunctorName(term)
		emit(wam.Instruction{Op: wam.OpGetStructure, Functor: name, Arity: arity, Reg2: dst, Reg2Kind: dstKind})
		// Nested compounds are matched only after this level's own
		// argument walk, so their get_structure cannot move the structure
		// pointer off this level's remaining arguments.
		var nested []func()
		for i := 0; i < arity; i++ {
			if rest := c.compileHeadStructArg(ra, c.h.Arg(term, i), emit); rest != nil {
				nested = append(nested, rest)
			}
		}
		for _, rest := range nested {
			rest()
		}

	default: // CON or INT
		emit(wam.Instruction{Op: wam.OpGetConstant, Const: term, Reg2: dst, Reg2Kind: dstKind})
	}
}

// compileHeadStructArg compiles one argument slot inside a get_structure
// being walked, emitting the shared unify_* family (its runtime behavior
// branches on Mode, so the same instructions serve put_structure's
// argument walk too). A nested compound gets a fresh handle register; the
// returned func compiles it exactly like a top-level head term against
// that handle, recursively, and the caller runs it once the enclosing
// structure's arguments are all emitted. Other arguments return nil.
func (c *Compiler) compileHeadStructArg(ra *regAlloc, arg cell.Cell, emit func(wam.Instruction)) func() {
	arg = c.h.Deref(arg)
	switch {
	case arg.IsREF():
		kind, idx, first := ra.homeFor(arg.Index())
		op := wam.OpUnifyLocalValue
		if first {
			op = wam.OpUnifyVariable
		}
		emit(wam.Instruction{Op: op, Reg1: idx, Reg1Kind: kind})

	case arg.IsSTR():
		handle := ra.newHandle()
		emit(wam.Instruction{Op: wam.OpUnifyVariable, Reg1: handle, Reg1Kind: wam.RegX})
		return func() { c.compileGetTerm(ra, arg, wam.RegX, handle, emit) }

	default:
		emit(wam.Instruction{Op: wam.OpUnifyConstant, Const: arg})
	}
	return nil
}

// compilePutTerm compiles one goal-side (construction) term into dst.
// Nested compound arguments must be fully built before the structure
// that references them (set_value needs a real heap value to copy), so
// compilePutTerm recurses into each compound child first and only
// then emits the parent's own put_structure/unify_* sequence.
func (c *Compiler) compilePutTerm(ra *regAlloc, term cell.Cell, dstKind wam.RegKind, dst int, emit func(wam.Instruction)) {
	term = c.h.Deref(term)
	switch {
	case term.IsREF():
		kind, idx, first := ra.homeFor(term.Index())
		if first {
			op := wam.OpPutVariableX
			if kind == wam.RegY {
				op = wam.OpPutVariableY
			}
			emit(wam.Instruction{Op: op, Reg1: idx, Reg1Kind: kind, Reg2: dst, Reg2Kind: dstKind})
		} else {
			op := wam.OpPutValueX
			if kind == wam.RegY {
				op = wam.OpPutValueY
			}
			emit(wam.Instruction{Op: op, Reg1: idx, Reg1Kind: kind, Reg2: dst, Reg2Kind: dstKind})
		}

	case term.IsSTR():
		name, arity := c.h.FunctorName(term)
		args := make([]cell.Cell, arity)
		for i := range args {
			args[i] = c.h.Arg(term, i)
		}
		// Pre-build any nested compound argument before this level's
		// put_structure, assigning it a handle register to reference.
		handles := make([]int, arity)
		isHandle := make([]bool, arity)
		for i, a := range args {
			a = c.h.Deref(a)
			if a.IsSTR() {
				handles[i] = ra.newHandle()
				isHandle[i] = true
				c.compilePutTerm(ra, a, wam.RegX, handles[i], emit)
			}
		}
		emit(wam.Instruction{Op: wam.OpPutStructure, Functor: name, Arity: arity, Reg2: dst, Reg2Kind: dstKind})
		for i, a := range args {
			if isHandle[i] {
				emit(wam.Instruction{Op: wam.OpUnifyLocalValue, Reg1: handles[i], Reg1Kind: wam.RegX})
				continue
			}
			c.compilePutStructArg(ra, a, emit)
		}

	default:
		emit(wam.Instruction{Op: wam.OpPutConstant, Const: term, Reg2: dst, Reg2Kind: dstKind})
	}
}

// compilePutStructArg compiles one non-compound argument of a
// put_structure being constructed (compound arguments are pre-built and
// referenced via unify_local_value by the caller, compilePutTerm).
func (c *Compiler) compilePutStructArg(ra *regAlloc, arg cell.Cell, emit func(wam.Instruction)) {
	arg = c.h.Deref(arg)
	if arg.IsREF() {
		kind, idx, first := ra.homeFor(arg.Index())
		op := wam.OpUnifyLocalValue
		if first {
			op = wam.OpUnifyVariable
		}
		emit(wam.Instruction{Op: op, Reg1: idx, Reg1Kind: kind})
		return
	}
	emit(wam.Instruction{Op: wam.OpUnifyConstant, Const: arg})
}

// goalArgs returns a goal term's argument list (nil for a bare atom).
func goalArgs(h *heap.Heap, g cell.Cell) []cell.Cell {
	g = h.Deref(g)
	if !g.IsSTR() {
		return nil
	}
	_, arity := h.FunctorName(g)
	args := make([]cell.Cell, arity)
	for i := range args {
		args[i] = h.Arg(g, i)
	}
	return args
}

// goalIndicator returns a goal term's name/arity.
func goalIndicator(h *heap.Heap, g cell.Cell) wam.PredIndicator {
	g = h.Deref(g)
	if g.IsCON() {
		name, arity := h.Atoms.Functor(g)
		return wam.PredIndicator{Name: name, Arity: arity}
	}
	name, arity := h.FunctorName(g)
	return wam.PredIndicator{Name: name, Arity: arity}
}

// validateHead rejects a clause whose head cannot possibly be the head
// of name/arity: an instantiation/type mistake the compiler catches
// immediately rather than at call time (spec.md §7's compile_error).
func (c *Compiler) validateHead(head cell.Cell, name string, arity int) error {
	head = c.h.Deref(head)
	if arity == 0 {
		if head.IsCON() {
			if n, a := c.h.Atoms.Functor(head); n == name && a == 0 {
				return nil
			}
		}
		return wamerr.Compile("clause head is not callable as " + wam.PredIndicator{Name: name, Arity: arity}.String())
	}
	if !c.h.CheckFunctor(head) {
		return wamerr.Compile("clause head is not callable as " + wam.PredIndicator{Name: name, Arity: arity}.String())
	}
	n, a := c.h.FunctorName(head)
	if n != name || a != arity {
		return wamerr.Compile("clause head " + wam.PredIndicator{Name: n, Arity: a}.String() +
			" does not match predicate " + wam.PredIndicator{Name: name, Arity: arity}.String())
	}
	return nil
}

// validateGoal rejects a non-callable body goal at compile time.
func (c *Compiler) validateGoal(g cell.Cell) error {
	g = c.h.Deref(g)
	switch {
	case g.IsREF():
		return wamerr.Instantiation("clause body")
	case g.IsINT():
		return wamerr.Type("callable", "clause body")
	case g.IsCON():
		return nil
	case g.IsSTR() && c.h.CheckFunctor(g):
		return nil
	default:
		return wamerr.Compile("clause body goal is not callable")
	}
}
