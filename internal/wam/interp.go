package wam

import (
	"fmt"

	"github.com/sentra-lang/gowam/internal/cell"
	"github.com/sentra-lang/gowam/internal/unify"
	"github.com/sentra-lang/gowam/internal/wamerr"
)

// doUnify unifies a and b against the current heap mark, the single
// entry point every get_value/get_constant/unify_*/get_structure-binding
// instruction routes through.
func (s *State) doUnify(a, b cell.Cell) bool {
	return unify.Unify(s.H, s.Tr, s.hMark(), a, b)
}

// Unify exposes doUnify to built-ins (package builtin and others outside
// wam): a built-in binds its result arguments the same way the
// interpreter binds get_value/unify_value, trailing correctly for
// backtracking.
func (s *State) Unify(a, b cell.Cell) bool {
	return s.doUnify(a, b)
}

// Arg returns A[i], dereferenced — the argument a built-in registered
// under arity n reads as s.Arg(0)..s.Arg(n-1).
func (s *State) Arg(i int) cell.Cell {
	return s.H.Deref(s.A[i])
}

// DefinePredicate installs name/arity's already compiled instruction
// stream and X register count, replacing any earlier definition.
// Compilation itself lives in package compiler (CompilePredicate); this
// is the seam its output is handed to — kept here so callers only import
// package wam for the embedded API spec.md §6 describes.
func (s *State) DefinePredicate(name string, arity int, code []Instruction, numRegs int) {
	s.Preds.Define(name, arity, code, numRegs)
}

// Execute runs a compiled query's instruction stream (produced by the
// compiler as an anonymous predicate) until it halts or fails with no
// remaining choice points. It returns (true, nil) on success, (false,
// nil) on ordinary failure, or (false, err) if a built-in raised a typed
// error (spec.md §7: typed errors abort the query and surface here).
func (s *State) Execute(code []Instruction, numRegs int) (bool, error) {
	s.clearAbort()
	s.Failed = false
	s.Halted = false
	s.X = make([]cell.Cell, numRegs)
	s.E = -1
	s.B = -1
	s.CP = ProgramCounter{} // sentinel halt
	s.PC = ProgramCounter{Pred: PredIndicator{Name: "$query", Arity: 0}, Code: code, Offset: 0}

	err := s.run()
	if err != nil {
		return false, err
	}
	return !s.Failed, nil
}

func (s *State) run() error {
	for {
		if s.abort {
			s.unwindAll()
			return fmt.Errorf("aborted")
		}
		if s.PC.isHalt() {
			s.Halted = true
			return nil
		}
		if s.PC.Offset >= len(s.PC.Code) {
			return fmt.Errorf("wam: PC ran off the end of %s at offset %d", s.PC.Pred, s.PC.Offset)
		}
		in := s.PC.Code[s.PC.Offset]
		s.trace(in)

		ok, err := s.step(in)
		if err != nil {
			s.unwindAll()
			return err
		}
		if !ok {
			if !s.backtrack() {
				s.Failed = true
				return nil
			}
			continue
		}
	}
}

func (s *State) trace(in Instruction) {
	if s.Logger.IsTrace() {
		s.Logger.Trace("step", "pred", s.PC.Pred, "offset", s.PC.Offset, "op", in.Op)
	}
}

// unwindAll undoes every outstanding binding on abort, restoring the
// engine to a usable state for the next query (spec.md §7: "interpreter
// state remains usable afterwards").
func (s *State) unwindAll() {
	s.Tr.Unwind(s.H, 0)
	s.E = -1
	s.B = -1
}

// reg reads a register of any kind (X, Y, or A) — the generalization
// that lets get_structure/get_constant/put_structure/put_constant and
// friends operate on a flattened nested subterm's temporary exactly as
// they would on a true argument register.
func (s *State) reg(kind RegKind, idx int) cell.Cell {
	switch kind {
	case RegY:
		return s.Env[s.E].Y[idx]
	case RegA:
		return s.A[idx]
	default:
		return s.X[idx]
	}
}

func (s *State) setReg(kind RegKind, idx int, v cell.Cell) {
	switch kind {
	case RegY:
		s.Env[s.E].Y[idx] = v
	case RegA:
		s.A[idx] = v
	default:
		s.X[idx] = v
	}
}

func (s *State) hMark() int {
	if s.B == -1 {
		return 0
	}
	return s.CPStack[s.B].H
}

// step executes one instruction. The returned bool is the instruction's
// own success/failure (false triggers backtracking in run()); control
// instructions advance PC themselves, everything else falls through to a
// default PC.Offset++ at the bottom.
func (s *State) step(in Instruction) (bool, error) {
	advance := true
	ok := true
	var err error

	switch in.Op {
	case OpGetVariableX, OpGetVariableY:
		s.setReg(in.Reg1Kind, in.Reg1, s.reg(in.Reg2Kind, in.Reg2))

	case OpGetValueX, OpGetValueY:
		ok = s.doUnify(s.reg(in.Reg1Kind, in.Reg1), s.reg(in.Reg2Kind, in.Reg2))

	case OpGetStructure:
		a := s.H.Deref(s.reg(in.Reg2Kind, in.Reg2))
		switch {
		case a.IsREF():
			str := s.H.NewStr(in.Functor, make([]cell.Cell, in.Arity))
			s.doUnify(a, str)
			s.StructPtr = str.Index() + 1
			s.Mode = ModeWrite
		case s.H.CheckFunctor(a):
			name, arity := s.H.FunctorName(a)
			if name == in.Functor && arity == in.Arity {
				s.StructPtr = a.Index() + 1
				s.Mode = ModeRead
			} else {
				ok = false
			}
		default:
			ok = false
		}

	case OpGetConstant:
		ok = s.doUnify(s.reg(in.Reg2Kind, in.Reg2), in.Const)

	case OpPutVariableX, OpPutVariableY:
		r := s.H.NewRef()
		s.setReg(in.Reg1Kind, in.Reg1, r)
		s.setReg(in.Reg2Kind, in.Reg2, r)

	case OpPutValueX, OpPutValueY:
		s.setReg(in.Reg2Kind, in.Reg2, s.reg(in.Reg1Kind, in.Reg1))

	case OpPutStructure:
		str := s.H.NewStr(in.Functor, make([]cell.Cell, in.Arity))
		s.setReg(in.Reg2Kind, in.Reg2, str)
		s.StructPtr = str.Index() + 1
		s.Mode = ModeWrite

	case OpPutConstant:
		s.setReg(in.Reg2Kind, in.Reg2, in.Const)

	case OpUnifyVariable:
		if s.Mode == ModeRead {
			s.setReg(in.Reg1Kind, in.Reg1, s.H.Get(s.StructPtr))
		} else {
			r := s.H.NewRef()
			s.setReg(in.Reg1Kind, in.Reg1, r)
			s.H.Set(s.StructPtr, r)
		}
		s.StructPtr++

	case OpUnifyValue:
		if s.Mode == ModeRead {
			ok = s.doUnify(s.reg(in.Reg1Kind, in.Reg1), s.H.Get(s.StructPtr))
		} else {
			s.H.Set(s.StructPtr, s.reg(in.Reg1Kind, in.Reg1))
		}
		s.StructPtr++

	case OpUnifyLocalValue:
		if s.Mode == ModeRead {
			ok = s.doUnify(s.reg(in.Reg1Kind, in.Reg1), s.H.Get(s.StructPtr))
		} else {
			v := s.reg(in.Reg1Kind, in.Reg1)
			if v.IsREF() && s.H.Deref(v) == v {
				// Globalize: the register holds a still-unbound local
				// variable; give it a fresh heap cell rather than alias
				// the register slot into the structure.
				fresh := s.H.NewRef()
				s.doUnify(v, fresh)
				v = fresh
			}
			s.H.Set(s.StructPtr, v)
		}
		s.StructPtr++

	case OpUnifyConstant:
		if s.Mode == ModeRead {
			ok = s.doUnify(s.H.Deref(s.H.Get(s.StructPtr)), in.Const)
		} else {
			s.H.Set(s.StructPtr, in.Const)
		}
		s.StructPtr++

	case OpAllocate:
		env := &Environment{CP: s.CP, E: s.E, Y: make([]cell.Cell, in.NVars)}
		s.Env = append(s.Env, env)
		s.E = len(s.Env) - 1

	case OpDeallocate:
		s.CP = s.Env[s.E].CP
		s.E = s.Env[s.E].E

	case OpCall:
		s.CP = ProgramCounter{Pred: s.PC.Pred, Code: s.PC.Code, Offset: s.PC.Offset + 1}
		ok, err = s.dispatch(in.Pred)
		advance = false

	case OpExecute:
		ok, err = s.dispatch(in.Pred)
		advance = false

	case OpProceed:
		s.PC = s.CP
		advance = false

	case OpTryMeElse:
		cp := &ChoicePoint{
			A:          append([]cell.Cell(nil), s.A[:s.PC.Pred.Arity]...),
			E:          s.E,
			CP:         s.CP,
			B:          s.B,
			TR:         s.Tr.Mark(),
			H:          s.H.Size(),
			Pred:       s.PC.Pred,
			NextOffset: in.Label,
		}
		s.CPStack = append(s.CPStack, cp)
		s.B = len(s.CPStack) - 1

	case OpRetryMeElse:
		s.CPStack[s.B].NextOffset = in.Label

	case OpTrustMe:
		prior := s.CPStack[s.B].B
		s.B = prior

	case OpFail:
		ok = false

	case OpHalt:
		s.Halted = true
		advance = false

	case OpSwitchOnTerm:
		target, found := s.switchOnTermTarget(in)
		if !found {
			ok = false
		} else {
			s.PC.Offset = target
			advance = false
		}

	case OpSwitchOnConstant:
		target, found := s.switchTableTarget(in, true)
		if !found {
			ok = false
		} else {
			s.PC.Offset = target
			advance = false
		}

	case OpSwitchOnStructure:
		target, found := s.switchTableTarget(in, false)
		if !found {
			ok = false
		} else {
			s.PC.Offset = target
			advance = false
		}

	default:
		return false, fmt.Errorf("wam: unknown opcode %v", in.Op)
	}

	if err != nil {
		return false, err
	}
	if advance && ok {
		s.PC.Offset++
	}
	return ok, nil
}


// dispatch looks up name/arity in the predicate table and transfers
// control to it: a compiled predicate becomes the new PC, a built-in
// runs immediately and then proceeds. An undefined predicate raises an
// existence_error per spec.md §7.
func (s *State) dispatch(p PredIndicator) (bool, error) {
	pred := s.Preds.Lookup(p.Name, p.Arity)
	if pred == nil {
		return false, wamerr.Existence("procedure", p.String())
	}
	if pred.IsBuiltin() {
		ok, err := pred.Fn(s, p.Arity)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		s.PC = s.CP
		return true, nil
	}
	// X registers are scratch for the duration of one clause activation
	// and never expected to survive a call (anything that must survive is
	// either a call argument, already in A, or a permanent Y variable in
	// the environment) — so each call into a compiled predicate gets a
	// fresh X window sized to whichever of its clauses needs the most.
	s.X = make([]cell.Cell, pred.NumRegs)
	s.PC = ProgramCounter{Pred: p, Code: pred.Code, Offset: 0}
	return true, nil
}

func (s *State) backtrack() bool {
	if s.B == -1 {
		return false
	}
	cp := s.CPStack[s.B]
	copy(s.A, cp.A)
	s.E = cp.E
	s.CP = cp.CP
	s.Tr.Unwind(s.H, cp.TR)
	s.H.Trim(cp.H)

	pred := s.Preds.Lookup(cp.Pred.Name, cp.Pred.Arity)
	s.X = make([]cell.Cell, pred.NumRegs)
	s.PC = ProgramCounter{Pred: cp.Pred, Code: pred.Code, Offset: cp.NextOffset}
	return true
}



func (s *State) switchOnTermTarget(in Instruction) (int, bool) {
	a := s.H.Deref(s.A[0])
	var label int
	switch {
	case a.IsREF():
		label = in.SwitchTerm.Var
	case a.IsSTR():
		name, arity := s.H.FunctorName(a)
		if name == "." && arity == 2 {
			label = in.SwitchTerm.List
		} else {
			label = in.SwitchTerm.Struct
		}
	default: // CON or INT
		label = in.SwitchTerm.Con
	}
	if label < 0 {
		return 0, false
	}
	return label, true
}

// switchTableTarget looks up the dereferenced A0's key in the
// switch_on_constant/switch_on_structure table. A miss isn't necessarily
// a failure: a constant or structure never seen among the predicate's
// clauses can still match a var-headed one, so in.Label carries that
// fallback chain's offset (-1 if no var-headed clause exists at all).
func (s *State) switchTableTarget(in Instruction, constant bool) (int, bool) {
	a := s.H.Deref(s.A[0])
	key := switchKey(s, a, constant)
	if label, found := in.SwitchTable[key]; found {
		return label, true
	}
	if in.Label < 0 {
		return 0, false
	}
	return in.Label, true
}

func switchKey(s *State, a cell.Cell, constant bool) string {
	if constant {
		if a.IsINT() {
			return fmt.Sprintf("#%d", a.IntValue())
		}
		name, arity := s.H.Atoms.Functor(a)
		return fmt.Sprintf("%s/%d", name, arity)
	}
	name, arity := s.H.FunctorName(a)
	return fmt.Sprintf("%s/%d", name, arity)
}
