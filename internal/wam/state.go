package wam

import (
	"github.com/hashicorp/go-hclog"

	"github.com/sentra-lang/gowam/internal/cell"
	"github.com/sentra-lang/gowam/internal/heap"
	"github.com/sentra-lang/gowam/internal/unify"
)

// Mode is the machine's structure-pointer mode while walking a STR cell's
// arguments: READ when the structure already exists and is being matched,
// WRITE when it is being built.
type Mode uint8

const (
	ModeRead Mode = iota
	ModeWrite
)

// ProgramCounter locates a position within one predicate's compiled
// instruction stream. A nil Code with Offset 0 is the sentinel "halt"
// continuation seeded as CP at top level.
type ProgramCounter struct {
	Pred   PredIndicator
	Code   []Instruction
	Offset int
}

func (pc ProgramCounter) isHalt() bool { return pc.Code == nil }

// Environment is a stack frame holding one clause activation's
// permanent (Y) variables and its continuation.
type Environment struct {
	CP ProgramCounter
	E  int // index of the previous environment, -1 if none
	Y  []cell.Cell
}

// ChoicePoint is saved machine state permitting resumption at the next
// clause alternative.
type ChoicePoint struct {
	A          []cell.Cell // saved argument registers, length = call arity
	E          int
	CP         ProgramCounter
	B          int // index of the prior choice point, -1 if none
	TR         int // trail mark
	H          int // heap mark
	Pred       PredIndicator
	NextOffset int // BP: offset of the next alternative in Pred's code
}

// State is one engine instance's complete machine state: heap, trail,
// registers, stacks, program counter, predicate table, and logger. No
// state is shared between instances.
type State struct {
	H  *heap.Heap
	Tr *unify.Trail

	A         []cell.Cell // argument registers A[0..MaxArity)
	X         []cell.Cell // temporary registers, resized per call
	StructPtr int         // "S" register: heap index inside get_structure/put_structure
	Mode      Mode

	Env      []*Environment
	E        int // index of current environment, -1 if none
	CPStack  []*ChoicePoint
	B        int // index of current choice point, -1 if none (sentinel)
	PC       ProgramCounter
	CP       ProgramCounter // continuation to resume on proceed

	Preds *PredicateTable

	Logger hclog.Logger

	abort  bool // polled once per fetch; set via RequestAbort
	Failed bool
	Halted bool
}

// MaxArity bounds the argument-register file (A[0..MaxArity)).
const MaxArity = 255

// Option configures a new State.
type Option func(*State)

// WithLogger installs a structured logger; the default is a null logger
// so normal execution pays nothing for logging.
func WithLogger(l hclog.Logger) Option {
	return func(s *State) { s.Logger = l }
}

// WithMaxArity overrides the default argument-register count.
func WithMaxArity(n int) Option {
	return func(s *State) { s.A = make([]cell.Cell, n) }
}

// NewState creates a fresh engine instance: its own heap, trail,
// registers, stacks, and predicate table.
func NewState(opts ...Option) *State {
	s := &State{
		H:     heap.New(),
		Tr:    unify.NewTrail(),
		A:     make([]cell.Cell, MaxArity),
		E:     -1,
		B:     -1,
		Preds: NewPredicateTable(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = hclog.NewNullLogger()
	}
	return s
}

// Heap exposes the engine's heap to built-ins, which need it to build
// and inspect terms (package builtin has no other way to reach it).
func (s *State) Heap() *heap.Heap { return s.H }

// RequestAbort sets the abort flag the interpreter loop polls at each
// instruction fetch; a running Execute then unwinds and returns an
// "aborted" error. Execute clears the flag when it starts, so a request
// made between Execute calls has no effect. Re-entrant abort from within
// a built-in is not supported (spec.md §5).
func (s *State) RequestAbort() { s.abort = true }

// clearAbort resets the abort flag at the start of a fresh Execute call.
func (s *State) clearAbort() { s.abort = false }
