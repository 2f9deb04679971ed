// Package mutation detects structural mutations made through stand-ins.
//
// An Engine turns an object into a stand-in (an object.Proxy) whose define,
// delete, set and prototype-change operations are compared against the
// current state first. Genuine changes are reported as a Record to the
// configured Handler, then the operation is always performed on the original
// object. Reads through a stand-in lazily wrap nested objects, so mutations
// anywhere in the reachable graph are seen:
//
//	eng := mutation.New(mutation.WithHandler(func(r mutation.Record) {
//	    fmt.Println(r)
//	}))
//	doc := eng.Wrap(object.FromGo(map[string]any{"a": map[string]any{"b": 1}}))
//	a, _ := object.Get(doc.(object.Object), "a")
//	object.Set(a.(object.Object), "b", 2) // handler sees: set record#3."b" = 2
//
// Each original has exactly one live stand-in; the association is weak (see
// package identity). Nothing is prevented: this is detection, not freezing.
//
// # Configuration
//
// Configure replaces the ignore predicate and handler wholesale. A nil field
// restores the default: ignore nothing, and log each record at warn level.
//
// # Handler failures
//
// A panicking handler is recovered and logged as a *HandlerPanicError; the
// structural operation still goes ahead.
package mutation
