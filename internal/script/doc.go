// Package script runs Lua scripts against wrapped documents.
//
// A script sees objects from the object model as userdata. Reading a field
// goes through the object's own Get, assigning through its Set, so a script
// working on a stand-in triggers the same mutation reports as Go code would.
//
// # Runner
//
// The Runner owns a sandboxed Lua state and serializes every run through an
// Executor goroutine:
//
//	r, err := script.NewRunner(engine)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	r.Bind("doc", doc) // doc is wrapped by engine
//	err = r.Run(ctx, `doc.name = "renamed"`)
//
// # Lua surface
//
// Field access (o.k, o[k]), assignment, #o and calls map onto the object
// operations. Numeric keys are used as is: items[0] is the first element.
// Assigning nil stores nil; use remove to delete. The globals are:
//
//	keys(o)                 own enumerable keys, as a Lua array
//	remove(o, k)            delete a property
//	define(o, k, v [, d])   define a property; d may set writable,
//	                        enumerable, configurable, get and set
//	getproto(o)             the prototype, or nil
//	setproto(o, p)          replace the prototype
//	copy(o)                 shallow copy into a fresh plain object
//	freeze(o)               freeze o
//	push(o, ...)            append to a sequence
//	json(o)                 JSON text of o
//	isstandin(v)            whether v is a stand-in
//
// # Sandbox
//
// Only the base, table, string and math libraries are opened. dofile,
// loadfile, load, loadstring and require are removed, print is routed to
// the logger, and the number of bridged operations per run can be capped.
package script
