// Package prologwrite is the engine's diagnostic pretty-printer: heap
// terms to Prolog-ish text, for print_db/print_result style tooling and
// test failure messages. Grounded on the teacher's formatter.Formatter
// (a strings.Builder accumulator walked recursively over a structured
// tree) with the tree here being heap terms instead of an AST.
package prologwrite

import (
	"fmt"
	"strings"

	"github.com/sentra-lang/gowam/internal/cell"
	"github.com/sentra-lang/gowam/internal/heap"
)

// maxDepth bounds recursion into a term unification could in principle
// have made cyclic (the engine performs no occurs-check — spec.md §9):
// printing must terminate rather than loop forever walking a cycle.
const maxDepth = 1_000_000

// Writer renders heap terms to text.
type Writer struct {
	h      *heap.Heap
	sb     strings.Builder
	nextVN int
	varName map[int]string
}

// New returns a writer bound to h.
func New(h *heap.Heap) *Writer {
	return &Writer{h: h, varName: make(map[int]string)}
}

// Term renders one term and returns it as a string. Each call starts
// with a fresh variable-naming scheme (_G0, _G1, ...) scoped to that one
// call, matching how a top-level print of an isolated result is read.
func (w *Writer) Term(t cell.Cell) string {
	w.sb.Reset()
	w.nextVN = 0
	w.varName = make(map[int]string)
	w.write(t, 0)
	return w.sb.String()
}

func (w *Writer) write(t cell.Cell, depth int) {
	if depth > maxDepth {
		w.sb.WriteString("...")
		return
	}
	t = w.h.Deref(t)
	switch {
	case t.IsREF():
		w.sb.WriteString(w.nameFor(t.Index()))

	case t.IsINT():
		fmt.Fprintf(&w.sb, "%d", t.IntValue())

	case t.IsCON():
		name, _ := w.h.Atoms.Functor(t)
		w.sb.WriteString(quoteAtomIfNeeded(name))

	case t.IsSTR():
		name, arity := w.h.FunctorName(t)
		if name == "." && arity == 2 {
			w.writeList(t, depth)
			return
		}
		w.sb.WriteString(quoteAtomIfNeeded(name))
		w.sb.WriteByte('(')
		for i := 0; i < arity; i++ {
			if i > 0 {
				w.sb.WriteString(", ")
			}
			w.write(w.h.Arg(t, i), depth+1)
		}
		w.sb.WriteByte(')')

	default:
		w.sb.WriteString("<gbl>")
	}
}

func (w *Writer) writeList(t cell.Cell, depth int) {
	w.sb.WriteByte('[')
	first := true
	for depth < maxDepth {
		t = w.h.Deref(t)
		if t.IsCON() {
			if name, arity := w.h.Atoms.Functor(t); name == "[]" && arity == 0 {
				break
			}
		}
		if !w.h.CheckFunctor(t) {
			w.sb.WriteString("|")
			w.write(t, depth+1)
			break
		}
		if name, arity := w.h.FunctorName(t); name != "." || arity != 2 {
			w.sb.WriteString("|")
			w.write(t, depth+1)
			break
		}
		if !first {
			w.sb.WriteString(", ")
		}
		first = false
		w.write(w.h.Arg(t, 0), depth+1)
		t = w.h.Arg(t, 1)
		depth++
	}
	w.sb.WriteByte(']')
}

func (w *Writer) nameFor(idx int) string {
	if n, ok := w.varName[idx]; ok {
		return n
	}
	n := fmt.Sprintf("_G%d", w.nextVN)
	w.nextVN++
	w.varName[idx] = n
	return n
}

// quoteAtomIfNeeded wraps an atom in single quotes if it wouldn't read
// back as the same atom unquoted: anything but a lowercase-led
// alphanumeric identifier, [], ! or ;. Symbol-character atoms such as =
// are quoted too. An embedded quote is doubled, the escape prologread's
// lexer reads back.
func quoteAtomIfNeeded(name string) string {
	if name == "[]" || name == "!" || name == ";" {
		return name
	}
	if name == "" {
		return "''"
	}
	r := rune(name[0])
	if r >= 'a' && r <= 'z' {
		for _, c := range name {
			if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
				return "'" + strings.ReplaceAll(name, "'", "''") + "'"
			}
		}
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
