// Package wamerr defines the typed errors a built-in or the compiler can
// raise, as distinguished from ordinary unification failure (which is not
// an error at all, just the backtracking signal).
//
// The shape — a typed kind plus a message plus an optional culprit term —
// mirrors a source-location-carrying language error type, minus the
// source location: the WAM core has no source positions, only terms.
package wamerr

import "fmt"

// Kind enumerates the error kinds spec.md §7 distinguishes.
type Kind string

const (
	// KindInstantiation: a built-in expected a bound term and got an
	// unbound REF.
	KindInstantiation Kind = "instantiation_error"
	// KindType: a built-in argument has the wrong tag.
	KindType Kind = "type_error"
	// KindDomain: a value is out of the allowed range.
	KindDomain Kind = "domain_error"
	// KindExistence: call to an undefined predicate, or another missing
	// resource named by a term.
	KindExistence Kind = "existence_error"
	// KindCompile: a malformed clause, reported immediately by the
	// compiler rather than during execution.
	KindCompile Kind = "compile_error"
	// KindResource: heap (or other) allocation failure. Fatal.
	KindResource Kind = "resource_error"
)

// Error is the typed error raised by built-ins and the compiler. Typed
// errors abort the current query and unwind all choice points, unlike
// ordinary unification failure which is recovered locally by
// backtracking.
type Error struct {
	Kind    Kind
	Culprit string // textual description of the offending term/value; the
	                // core has no pretty-printer of its own to call here.
	Message string
}

func (e *Error) Error() string {
	if e.Culprit == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s(%s): %s", e.Kind, e.Culprit, e.Message)
}

// Instantiation builds an instantiation_error.
func Instantiation(context string) error {
	return &Error{Kind: KindInstantiation, Message: "unbound argument in " + context}
}

// Type builds a type_error for an argument of the wrong tag.
func Type(expected, context string) error {
	return &Error{Kind: KindType, Message: fmt.Sprintf("expected %s in %s", expected, context)}
}

// Domain builds a domain_error for a value out of range.
func Domain(domain, culprit string) error {
	return &Error{Kind: KindDomain, Culprit: culprit, Message: "not in domain " + domain}
}

// Existence builds an existence_error, typically for an undefined
// predicate call.
func Existence(what, culprit string) error {
	return &Error{Kind: KindExistence, Culprit: culprit, Message: "does not exist: " + what}
}

// Compile builds a compile_error for a malformed clause.
func Compile(reason string) error {
	return &Error{Kind: KindCompile, Message: reason}
}

// Resource builds a fatal resource_error.
func Resource(reason string) error {
	return &Error{Kind: KindResource, Message: reason}
}

// Is reports whether err is a *Error of the given kind, for callers that
// want to branch on error category (e.g. the top-level caller of
// Execute distinguishing existence_error from other aborts).
func Is(err error, k Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == k
}
