// Package object implements the dynamic object model that mutation tracking
// operates on.
//
// Go values such as maps and slices cannot be intercepted structurally, so
// every wrappable value in this module is built from this package:
//
//   - Ordinary objects: records, arrays (with an exotic "length") and
//     callables, selected by a Kind tag rather than by Go type.
//   - Proxy: a stand-in over another Object whose structural operations can be
//     trapped individually. Missing traps forward to the target.
//
// # Protocol
//
// The Object interface is the structural protocol. Operations that may be
// refused (define, delete, set, prototype change) report refusal with a false
// result, not an error, so callers decide whether refusal is fatal:
//
//	rec := object.NewRecord()
//	object.Set(rec, "a", 1)
//	v, _ := object.Get(rec, "a") // 1
//
//	object.Freeze(rec)
//	ok, _ := object.Set(rec, "a", 2) // ok == false
//
// # Identity
//
// Every object owns an *Identity handle. Two values are the same object
// exactly when their identities are the same pointer; weak caches key on it.
//
// # Conversion
//
// FromGo and ToGo convert to and from plain Go maps and slices. ParseJSON and
// MarshalJSON do the same for JSON text.
package object
