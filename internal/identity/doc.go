// Package identity holds the weak, identity-keyed association between
// original objects and their stand-ins.
//
// Entries never keep either side alive. A stand-in references its target, so
// the stand-in always becomes unreachable no later than the target; the entry
// is dropped by a cleanup attached to the stand-in. A target that is still
// alive after its stand-in was reclaimed simply gets a new stand-in on the
// next wrap, which nobody can tell apart because the old one is unreachable.
//
// Builds tagged mutwatch_noweak report Supported() == false, and callers are
// expected to degrade to passthrough instead of caching strongly.
package identity
