// cmd/gowam/main.go
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/sentra-lang/gowam/internal/builtin"
	"github.com/sentra-lang/gowam/internal/cell"
	"github.com/sentra-lang/gowam/internal/compiler"
	"github.com/sentra-lang/gowam/internal/heap"
	"github.com/sentra-lang/gowam/internal/prologread"
	"github.com/sentra-lang/gowam/internal/wam"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: gowam <file.pl> <query>")
		fmt.Println("       gowam <file.pl> -db")
		fmt.Println(`Example: gowam examples/append.pl "append([1,2],[3],X)."`)
		os.Exit(1)
	}
	file, query := os.Args[1], os.Args[2]

	level := hclog.Warn
	if os.Getenv("GOWAM_TRACE") != "" {
		level = hclog.Trace
	}
	logger := hclog.New(&hclog.LoggerOptions{Name: "gowam", Level: level})

	src, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("gowam: %v", err)
	}

	s := wam.NewState(wam.WithLogger(logger))
	builtin.RegisterAll(s.Preds)

	if err := loadProgram(s, string(src)); err != nil {
		log.Fatalf("gowam: %v", err)
	}

	if query == "-db" {
		if err := s.PrintDB(os.Stdout); err != nil {
			log.Fatalf("gowam: %v", err)
		}
		return
	}

	goal, vars, err := prologread.ReadTermWithBindings(s.H, query)
	if err != nil {
		log.Fatalf("gowam: %v", err)
	}
	goals := compiler.FlattenBody(s.H, goal)
	code, numRegs, err := compiler.New(s.H).CompileQuery(goals)
	if err != nil {
		log.Fatalf("gowam: %v", err)
	}

	ok, err := s.Execute(code, numRegs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gowam: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("false.")
		return
	}

	if err := s.PrintResult(os.Stdout, vars); err != nil {
		log.Fatalf("gowam: %v", err)
	}
}

// loadProgram parses every clause in src, groups it by predicate, and
// installs each predicate's compiled code into s.Preds.
func loadProgram(s *wam.State, src string) error {
	clauses, err := prologread.ReadProgram(s.H, src)
	if err != nil {
		return err
	}

	type key struct {
		name  string
		arity int
	}
	grouped := make(map[key][]compiler.Clause)
	var order []key
	for _, ct := range clauses {
		name, arity := headIndicator(s.H, ct.Head)
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
			return err
		}
		s.DefinePredicate(k.name, k.arity, code, numRegs)
	}
	return nil
}

func headIndicator(h *heap.Heap, head cell.Cell) (string, int) {
	head = h.Deref(head)
	if head.IsCON() {
		name, arity := h.Atoms.Functor(head)
		return name, arity
	}
	name, arity := h.FunctorName(head)
	return name, arity
}
