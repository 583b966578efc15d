package builtin

import "github.com/sentra-lang/gowam/internal/wam"

// RegisterCore installs the handful of built-ins every program needs
// regardless of which domain collaborators it pulls in: unification as
// a goal, and the always-succeed/always-fail atoms a compiled body can
// still reference as an ordinary call (spec.md §4.6's built-in registry
// is the uniform home for these too, not a special case in the core
// loop itself).
func RegisterCore(preds *wam.PredicateTable) {
	const module = "core"

	// =(?X, ?Y): unifies its two arguments.
	preds.LoadBuiltin(module, "=", 2, func(s *wam.State, arity int) (bool, error) {
		return s.Unify(s.A[0], s.A[1]), nil
	})

	// true/0: always succeeds. A clause body compiles away a bare
	// `true` (see FlattenBody), but `true` can still appear as one goal
	// among several in a conjunction, where it needs a real entry.
	preds.LoadBuiltin(module, "true", 0, func(s *wam.State, arity int) (bool, error) {
		return true, nil
	})

	// fail/0, false/0: always fail.
	alwaysFail := func(s *wam.State, arity int) (bool, error) { return false, nil }
	preds.LoadBuiltin(module, "fail", 0, alwaysFail)
	preds.LoadBuiltin(module, "false", 0, alwaysFail)
}
