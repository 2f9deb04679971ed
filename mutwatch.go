// Package mutwatch detects structural mutations of shared objects.
//
// Wrap returns a stand-in for an object. The stand-in reads exactly like the
// original, but every assignment, property definition, deletion or
// prototype change made through it, or through any object reached from it,
// is reported to the configured handler before it is applied:
//
//	doc, _ := mutwatch.ParseJSON([]byte(`{"limits":{"max":3}}`))
//	mutwatch.Configure(mutwatch.Options{
//		Handler: func(r mutwatch.Record) { log.Println(r) },
//	})
//	view := mutwatch.Wrap(doc).(mutwatch.Object)
//	limits, _ := mutwatch.Get(view, "limits")
//	mutwatch.Set(limits.(mutwatch.Object), "max", 4) // reported
//
// Only values built from the object model (records, sequences, callables)
// can be watched. Plain Go values are converted first with FromGo.
package mutwatch

import (
	"github.com/dshills/mutwatch/internal/mutation"
	"github.com/dshills/mutwatch/internal/object"
)

// Object model.
type (
	Value      = object.Value
	Key        = object.Key
	Object     = object.Object
	Callable   = object.Callable
	Descriptor = object.Descriptor
	Func       = object.Func
)

// Mutation reporting.
type (
	Options    = mutation.Options
	Record     = mutation.Record
	Kind       = mutation.Kind
	Handler    = mutation.Handler
	IgnoreFunc = mutation.IgnoreFunc
	Engine     = mutation.Engine
	Option     = mutation.Option
)

// Record kinds.
const (
	KindDefineProperty = mutation.KindDefineProperty
	KindDeleteProperty = mutation.KindDeleteProperty
	KindSet            = mutation.KindSet
	KindSetPrototype   = mutation.KindSetPrototype
)

// PrototypeProperty is the Property of every KindSetPrototype record.
const PrototypeProperty = mutation.PrototypeProperty

// Wrap returns the stand-in for v. Primitives, nil, ignored values and
// stand-ins are returned unchanged, and the same object always yields the
// same stand-in.
func Wrap(v Value) Value {
	return mutation.Wrap(v)
}

// Configure replaces the process-wide options. Nil fields restore the
// defaults: nothing ignored, records logged at warn level.
func Configure(opts Options) {
	mutation.Configure(opts)
}

// IsStandIn reports whether v is a stand-in returned by Wrap.
func IsStandIn(v Value) bool {
	return mutation.IsStandIn(v)
}

// NewEngine creates an engine independent of the process-wide one.
func NewEngine(opts ...Option) *Engine {
	return mutation.New(opts...)
}

// Engine options.
var (
	WithIgnore      = mutation.WithIgnore
	WithHandler     = mutation.WithHandler
	WithLogger      = mutation.WithLogger
	WithPassthrough = mutation.WithPassthrough
)

// Constructors and reflect-style helpers of the object model.
var (
	NewRecord          = object.NewRecord
	NewRecordWithProto = object.NewRecordWithProto
	NewArray           = object.NewArray
	NewFunc            = object.NewFunc
	DataProperty       = object.DataProperty
	AccessorProperty   = object.AccessorProperty
	ConstantProperty   = object.ConstantProperty

	Get            = object.Get
	Set            = object.Set
	DefineProperty = object.DefineProperty
	DeleteProperty = object.DeleteProperty
	SetPrototype   = object.SetPrototype
	Keys           = object.Keys
	Length         = object.Length
	Push           = object.Push
	ShallowCopy    = object.ShallowCopy
	Freeze         = object.Freeze
	IsFrozen       = object.IsFrozen
	SameValue      = object.SameValue

	FromGo      = object.FromGo
	ToGo        = object.ToGo
	ParseJSON   = object.ParseJSON
	MarshalJSON = object.MarshalJSON
)
