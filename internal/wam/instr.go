// Package wam implements the WAM instruction set, machine state, and the
// fetch/decode/execute interpreter loop.
package wam

import "github.com/sentra-lang/gowam/internal/cell"

// Op identifies an instruction's family/opcode.
type Op uint8

const (
	// Get family — head matching against an argument register.
	OpGetVariableX Op = iota
	OpGetVariableY
	OpGetValueX
	OpGetValueY
	OpGetStructure
	OpGetConstant

	// Put family — goal construction before a call.
	OpPutVariableX
	OpPutVariableY
	OpPutValueX
	OpPutValueY
	OpPutStructure
	OpPutConstant

	// Unify family — advances the structure pointer inside get_structure
	// / put_structure; behaves as "unify_*" in READ mode and "set_*" in
	// WRITE mode, per the machine's current Mode (classical WAM: one
	// instruction family, two runtime behaviors).
	OpUnifyVariable
	OpUnifyValue
	OpUnifyLocalValue
	OpUnifyConstant

	// Control.
	OpAllocate
	OpDeallocate
	OpCall
	OpExecute
	OpProceed
	OpTryMeElse
	OpRetryMeElse
	OpTrustMe
	OpFail
	OpHalt

	// Indexing.
	OpSwitchOnTerm
	OpSwitchOnConstant
	OpSwitchOnStructure
)

var opNames = map[Op]string{
	OpGetVariableX: "get_variable_x", OpGetVariableY: "get_variable_y",
	OpGetValueX: "get_value_x", OpGetValueY: "get_value_y",
	OpGetStructure: "get_structure", OpGetConstant: "get_constant",
	OpPutVariableX: "put_variable_x", OpPutVariableY: "put_variable_y",
	OpPutValueX: "put_value_x", OpPutValueY: "put_value_y",
	OpPutStructure: "put_structure", OpPutConstant: "put_constant",
	OpUnifyVariable: "unify_variable", OpUnifyValue: "unify_value",
	OpUnifyLocalValue: "unify_local_value", OpUnifyConstant: "unify_constant",
	OpAllocate: "allocate", OpDeallocate: "deallocate",
	OpCall: "call", OpExecute: "execute", OpProceed: "proceed",
	OpTryMeElse: "try_me_else", OpRetryMeElse: "retry_me_else", OpTrustMe: "trust_me",
	OpFail: "fail", OpHalt: "halt",
	OpSwitchOnTerm: "switch_on_term", OpSwitchOnConstant: "switch_on_constant",
	OpSwitchOnStructure: "switch_on_structure",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "unknown_op"
}

// RegKind distinguishes which register file a register reference names.
// Classical WAM treats argument registers and temporaries as one file;
// gowam keeps A separate for clarity but every get_*/put_* instruction's
// "argument" operand is itself a RegKind/index pair so that flattened
// nested-structure equations can target a temporary (RegX) exactly the
// way a top-level head/goal argument targets RegA — see package
// compiler's handle registers (regAlloc.newHandle).
type RegKind uint8

const (
	RegX RegKind = iota // temporary register
	RegY                // permanent (environment) variable
	RegA                // argument register
)

// PredIndicator names a predicate by name/arity, the key of the
// predicate table.
type PredIndicator struct {
	Name  string
	Arity int
}

// SwitchOnTermTargets holds the four dispatch labels of switch_on_term,
// one per dereferenced tag of A0. A value of -1 means "no clause for this
// tag", which the interpreter treats as OpFail.
type SwitchOnTermTargets struct {
	Var, Con, List, Struct int
}

// Instruction is one WAM instruction: a fixed-category record carrying a
// small, op-dependent payload. Rather than a packed byte buffer (the
// systems-language realization spec.md §9 describes), gowam represents
// each instruction as one value in a per-predicate []Instruction slice —
// the Go-idiomatic analogue of "emit into a contiguous buffer per
// predicate, no per-instruction heap allocation": the slice is built once
// by the compiler and never boxed per element.
type Instruction struct {
	Op Op

	// Reg1/Reg1Kind is the instruction's primary register operand: the
	// X/Y home for get_variable/get_value/put_variable/put_value and for
	// the unify_*/set_* family (Reg1Kind is always RegX or RegY there).
	Reg1     int
	Reg1Kind RegKind

	// Reg2/Reg2Kind is the "argument" register get_structure/get_constant
	// match against, or put_structure/put_constant/put_variable/put_value
	// write into. Ordinarily RegA (a true Ai), but a flattened nested
	// subterm uses a RegX handle here instead — the same instructions
	// that compile a top-level head/goal argument compile a nested one,
	// just against a temporary rather than an argument register.
	Reg2     int
	Reg2Kind RegKind

	Functor string
	Arity   int
	Const   cell.Cell

	Pred PredIndicator // call/execute target
	// NVars: for allocate, the Y slots to reserve; for call, the clause's
	// total permanent-variable count (not the count still live past the
	// call). The interpreter does not read it on call and never trims
	// environments.
	NVars int

	Label int // jump target (try_me_else/retry_me_else, switch default)

	SwitchTerm SwitchOnTermTargets
	// SwitchTable maps a key to a jump label: "name/arity" for an atom or
	// "#n" for an integer (switch_on_constant), "name/arity" of the
	// functor for switch_on_structure.
	SwitchTable map[string]int
}

// SizeInBytes approximates the fixed encoded size of an instruction, per
// spec.md §4.4's "every instruction's size_in_bytes() is a fixed function
// of its type". gowam's PC is a slot index rather than a byte offset (see
// State.PC), so this is informational/diagnostic rather than load-bearing
// for dispatch. It is a pure function of Op except for the switch tables,
// whose size grows with their entry count.
func (in Instruction) SizeInBytes() int {
	switch in.Op {
	case OpGetVariableX, OpGetVariableY, OpGetValueX, OpGetValueY,
		OpPutVariableX, OpPutVariableY, OpPutValueX, OpPutValueY:
		return 3
	case OpGetStructure, OpPutStructure, OpGetConstant, OpPutConstant:
		return 6
	case OpUnifyVariable, OpUnifyValue, OpUnifyLocalValue, OpUnifyConstant:
		return 3
	case OpAllocate, OpDeallocate, OpProceed, OpFail, OpHalt:
		return 1
	case OpCall, OpExecute:
		return 6
	case OpTryMeElse, OpRetryMeElse, OpTrustMe:
		return 5
	case OpSwitchOnTerm:
		return 17
	case OpSwitchOnConstant, OpSwitchOnStructure:
		return 1 + 8*len(in.SwitchTable)
	default:
		return 1
	}
}
