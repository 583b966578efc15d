package wam

import (
	"fmt"
	"io"
	"sort"

	"github.com/sentra-lang/gowam/internal/cell"
	"github.com/sentra-lang/gowam/internal/prologwrite"
)

// Binding is one free variable's name and current (possibly still
// unbound) value, the element type of the bindings iterator spec.md §6
// describes.
type Binding struct {
	Name  string
	Value cell.Cell
}

// Bindings returns vars (typically the map ReadTermWithBindings produced
// for the query just executed) as a name-ordered slice — the iterator
// get_result/print_result walk, and anything else embedding the engine
// wants to present one binding at a time instead of as a single string.
func (s *State) Bindings(vars map[string]cell.Cell) []Binding {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Binding, len(names))
	for i, name := range names {
		out[i] = Binding{Name: name, Value: vars[name]}
	}
	return out
}

// GetResult renders vars as "Name = value, ..." in name order, each value
// dereferenced and printed the way prologwrite renders any other term. An
// empty vars (a query with no free variables, e.g. a ground fact check)
// renders as "true", matching how a Prolog top level reports a
// variable-free success.
func (s *State) GetResult(vars map[string]cell.Cell) string {
	bindings := s.Bindings(vars)
	if len(bindings) == 0 {
		return "true"
	}
	w := prologwrite.New(s.H)
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += ", "
		}
		out += b.Name + " = " + w.Term(b.Value)
	}
	return out
}

// PrintResult writes GetResult's rendering of vars to out, terminated by
// a newline — the "print_result(out)" diagnostic spec.md §6 names.
func (s *State) PrintResult(out io.Writer, vars map[string]cell.Cell) error {
	_, err := fmt.Fprintln(out, s.GetResult(vars))
	return err
}

// PrintDB writes a listing of every predicate currently loaded: its
// indicator, and either "builtin(module)" or its compiled instruction
// count and X register width — the "print_db(out)" diagnostic spec.md §6
// names.
func (s *State) PrintDB(out io.Writer) error {
	for _, p := range s.Preds.Indicators() {
		pred := s.Preds.Lookup(p.Name, p.Arity)
		var err error
		if pred.IsBuiltin() {
			_, err = fmt.Fprintf(out, "%s\tbuiltin(%s)\n", p, pred.Module)
		} else {
			_, err = fmt.Fprintf(out, "%s\t%d instructions, %d X registers\n", p, len(pred.Code), pred.NumRegs)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// DumpHeap writes every committed heap cell as "index: TAG payload", one
// per line — the heap dump spec.md §1's Non-goals allows as the ceiling
// of this engine's source-level debugging support (no breakpoints,
// stepping, or watches beyond this).
func (s *State) DumpHeap(out io.Writer) error {
	for i := 0; i < s.H.Size(); i++ {
		c := s.H.Get(i)
		var payload string
		switch {
		case c.IsINT():
			payload = fmt.Sprintf("%d", c.IntValue())
		case c.IsCON():
			name, arity := s.H.Atoms.Functor(c)
			payload = fmt.Sprintf("%s/%d", name, arity)
		default: // REF, STR
			payload = fmt.Sprintf("%d", c.Index())
		}
		if _, err := fmt.Fprintf(out, "%d: %s %s\n", i, c.Tag(), payload); err != nil {
			return err
		}
	}
	return nil
}
