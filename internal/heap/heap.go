// Package heap implements the WAM heap: an append-growing, block-structured
// array of tagged cells addressed by a contiguous 0-based index space.
// Cells are written once and afterwards mutated only through binding
// (REF -> anything); the only reclamation mechanism is Trim, which drops
// whole tail blocks to make truncation cheap.
package heap

import (
	"fmt"

	"github.com/sentra-lang/gowam/internal/cell"
)

// blockSize is the number of cells per backing block. Chosen to amortize
// growth the way a register VM pre-sizes its constant pool and argument
// buffers rather than growing one cell at a time.
const blockSize = 4096

// Heap is the engine's tagged-cell memory. One Heap belongs to exactly one
// engine instance; nothing here is safe for concurrent mutation.
type Heap struct {
	Atoms *cell.AtomTable

	blocks []block
	size   int // total cells committed across all blocks

	nilAtom   cell.Cell
	dotFunc   cell.Cell
	commaFunc cell.Cell

	refs externalRefs
}

type block struct {
	cells []cell.Cell
}

// New creates an empty heap with the distinguished list/comma atoms
// pre-interned.
func New() *Heap {
	h := &Heap{Atoms: cell.NewAtomTable()}
	h.nilAtom = h.Atoms.Con("[]", 0)
	h.dotFunc = h.Atoms.Con(".", 2)
	h.commaFunc = h.Atoms.Con(",", 2)
	h.refs = newExternalRefs()
	return h
}

// NilAtom, DotFunctor, CommaFunctor return the cached distinguished atoms.
func (h *Heap) NilAtom() cell.Cell     { return h.nilAtom }
func (h *Heap) DotFunctor() cell.Cell  { return h.dotFunc }
func (h *Heap) CommaFunctor() cell.Cell { return h.commaFunc }

// Size returns the number of committed cells; also usable directly as a
// heap mark (H) for choice points.
func (h *Heap) Size() int { return h.size }

func (h *Heap) blockOf(i int) *block { return &h.blocks[i/blockSize] }
func (h *Heap) offsetOf(i int) int   { return i % blockSize }

// Get returns the cell at heap index i.
func (h *Heap) Get(i int) cell.Cell {
	return h.blockOf(i).cells[h.offsetOf(i)]
}

// Set overwrites the cell at heap index i. Legal only during binding
// (REF -> something) or initial construction.
func (h *Heap) Set(i int, c cell.Cell) {
	h.blockOf(i).cells[h.offsetOf(i)] = c
}

// push appends one cell, growing the block array as needed, and returns
// its index.
func (h *Heap) push(c cell.Cell) int {
	if h.size%blockSize == 0 {
		h.blocks = append(h.blocks, block{cells: make([]cell.Cell, 0, blockSize)})
	}
	b := &h.blocks[len(h.blocks)-1]
	b.cells = append(b.cells, c)
	idx := h.size
	h.size++
	return idx
}

// ensureContig guarantees n cells can be appended contiguously, starting a
// fresh block (wasting the remainder of the current one) if the current
// block doesn't have room. STR cells require their functor and argument
// cells to sit at consecutive indices, which a naive ring of fixed blocks
// can't otherwise promise across a block boundary.
func (h *Heap) ensureContig(n int) {
	if n > blockSize {
		panic(fmt.Sprintf("heap: structure of %d cells exceeds block size %d", n, blockSize))
	}
	remaining := blockSize - h.size%blockSize
	if h.size%blockSize != 0 && remaining < n {
		// pad out to the next block boundary
		for h.size%blockSize != 0 {
			h.push(cell.Ref(h.size))
		}
	}
}

// NewRef allocates one REF cell pointing at its own index (an unbound
// variable) and returns that REF cell.
func (h *Heap) NewRef() cell.Cell {
	idx := h.size
	c := cell.Ref(idx)
	h.push(c)
	return c
}

// NewInt allocates nothing on the heap; INT cells are self-contained
// values. Exposed for API symmetry with the other constructors.
func (h *Heap) NewInt(n int64) cell.Cell { return cell.Int(n) }

// NewAtom allocates nothing on the heap; CON cells are self-contained
// values (compact-encoded or an atom-table index).
func (h *Heap) NewAtom(name string) cell.Cell { return h.Atoms.Con(name, 0) }

// NewStr writes a functor CON cell followed by its argument cells
// contiguously and returns a STR cell referencing the functor. Constant
// arguments may be inlined directly; REF arguments must already exist
// (typically freshly minted via NewRef).
func (h *Heap) NewStr(name string, args []cell.Cell) cell.Cell {
	h.ensureContig(1 + len(args))
	functorCell := h.Atoms.Con(name, len(args))
	j := h.push(functorCell)
	for _, a := range args {
		h.push(a)
	}
	return cell.Str(j)
}

// Deref follows a REF chain until it reaches a non-REF cell or a
// self-referential (unbound) REF. Pure: never allocates or mutates.
func (h *Heap) Deref(c cell.Cell) cell.Cell {
	for c.IsREF() {
		target := c.Index()
		t := h.Get(target)
		if t == c {
			return c // unbound: self-loop
		}
		c = t
	}
	return c
}

// Functor returns the CON cell at a STR cell's functor index. Panics if c
// is not STR; callers that need a safe check should use CheckFunctor
// first.
func (h *Heap) Functor(c cell.Cell) cell.Cell {
	if !c.IsSTR() {
		panic("heap: Functor called on non-STR cell")
	}
	return h.Get(c.Index())
}

// FunctorName returns the name/arity of a STR cell's functor.
func (h *Heap) FunctorName(c cell.Cell) (name string, arity int) {
	return h.Atoms.Functor(h.Functor(c))
}

// Arg returns the i'th (0-based) argument cell of a STR cell.
func (h *Heap) Arg(c cell.Cell, i int) cell.Cell {
	return h.Get(c.Index() + 1 + i)
}

// CheckFunctor reports whether c is a STR cell whose functor slot holds a
// CON with arity > 0, i.e. the STR invariant from spec §3.1 holds.
func (h *Heap) CheckFunctor(c cell.Cell) bool {
	if !c.IsSTR() {
		return false
	}
	j := c.Index()
	if j < 0 || j >= h.size {
		return false
	}
	f := h.Get(j)
	if !f.IsCON() {
		return false
	}
	_, arity := h.Atoms.Functor(f)
	return arity > 0
}

// IsList dereferences c and walks a ./2 spine, accepting [] as the
// terminator.
func (h *Heap) IsList(c cell.Cell) bool {
	c = h.Deref(c)
	for {
		if c.IsCON() {
			name, arity := h.Atoms.Functor(c)
			return name == "[]" && arity == 0
		}
		if !h.CheckFunctor(c) {
			return false
		}
		name, arity := h.FunctorName(c)
		if name != "." || arity != 2 {
			return false
		}
		c = h.Deref(h.Arg(c, 1))
	}
}

// Trim truncates the heap to exactly n cells. Callers must guarantee no
// live external reference points past n; debug builds assert this via the
// external-reference tracking set (see refs_debug.go / refs_release.go).
func (h *Heap) Trim(n int) {
	h.refs.assertNonePast(n)
	if n < 0 || n > h.size {
		panic(fmt.Sprintf("heap: Trim(%d) out of range [0,%d]", n, h.size))
	}
	nBlocks := (n + blockSize - 1) / blockSize
	if nBlocks == 0 && n > 0 {
		nBlocks = 1
	}
	if nBlocks < len(h.blocks) {
		h.blocks = h.blocks[:nBlocks]
	}
	if nBlocks > 0 {
		last := &h.blocks[nBlocks-1]
		localLen := n - (nBlocks-1)*blockSize
		last.cells = last.cells[:localLen]
	}
	h.size = n
}

// TrackExternal registers index as held by a live external handle so Trim
// can assert against truncating past it in debug builds. Release builds
// make this a no-op.
func (h *Heap) TrackExternal(index int) { h.refs.track(index) }

// UntrackExternal releases a previously tracked external handle.
func (h *Heap) UntrackExternal(index int) { h.refs.untrack(index) }
