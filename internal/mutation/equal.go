package mutation

import (
	"github.com/dshills/mutwatch/internal/object"
)

// Equivalent reports whether assigning next over current is not a mutation:
// either they are identical, or next is the stand-in this engine produced for
// current. The second case covers writing back a nested value that was just
// read through a stand-in.
func (e *Engine) Equivalent(current, next object.Value) bool {
	if object.SameValue(current, next) {
		return true
	}
	if !object.IsObservable(next) {
		return false
	}
	cur, ok := object.AsObject(current)
	if !ok {
		return false
	}
	standIn, ok := e.cache.Lookup(cur)
	return ok && object.SameValue(standIn, next)
}
