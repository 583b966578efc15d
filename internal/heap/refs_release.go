//go:build !gowam_debug

package heap

// externalRefs collapses to a bare no-op in release builds; only debug
// builds (gowam_debug) pay for tracking outstanding handles.
type externalRefs struct{}

func newExternalRefs() externalRefs { return externalRefs{} }

func (r *externalRefs) track(index int)   {}
func (r *externalRefs) untrack(index int) {}
func (r *externalRefs) assertNonePast(n int) {}
