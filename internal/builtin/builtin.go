// Package builtin registers the engine's "domain collaborator" built-ins:
// thin bridges from a Prolog-visible predicate to a real external
// concern (hashing, keypairs, HTTP, peer sockets, SQL, mailboxes).
// spec.md §1/§4.6 keeps these out of the WAM core proper — package wam's
// PredicateTable.LoadBuiltin is the uniform seam they're wired through —
// so each is free to use whatever third-party client library the concern
// calls for, the way the wider example corpus does for the same concerns.
package builtin

import (
	"fmt"

	"github.com/sentra-lang/gowam/internal/wam"
	"github.com/sentra-lang/gowam/internal/wamerr"
)

// atomArg reads argument i as an atom's name, raising an instantiation
// or type error if it isn't one (spec.md §7: a built-in validates its own
// arguments, since the WAM core has no type system to do it for them).
func atomArg(s *wam.State, i int, context string) (string, error) {
	a := s.Arg(i)
	if a.IsREF() {
		return "", wamerr.Instantiation(context)
	}
	if !a.IsCON() {
		return "", wamerr.Type("atom", context)
	}
	name, _ := s.Heap().Atoms.Functor(a)
	return name, nil
}

// intArg reads argument i as an integer.
func intArg(s *wam.State, i int, context string) (int64, error) {
	a := s.Arg(i)
	if a.IsREF() {
		return 0, wamerr.Instantiation(context)
	}
	if !a.IsINT() {
		return 0, wamerr.Type("integer", context)
	}
	return a.IntValue(), nil
}

// unifyAtom unifies argument i with a freshly built atom cell, the
// common "return a string-shaped result" shape every built-in here uses.
func unifyAtom(s *wam.State, i int, value string) (bool, error) {
	return s.Unify(s.A[i], s.Heap().NewAtom(value)), nil
}

// predName builds the diagnostic name a registration error mentions.
func predName(module, name string, arity int) string {
	return fmt.Sprintf("%s:%s", module, wam.PredIndicator{Name: name, Arity: arity}.String())
}
