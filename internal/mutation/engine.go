package mutation

import (
	"runtime/debug"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/mutwatch/internal/identity"
	"github.com/dshills/mutwatch/internal/logging"
	"github.com/dshills/mutwatch/internal/object"
)

// Engine produces stand-ins and reports the mutations made through them.
// It is safe for concurrent use; the objects it wraps are not.
type Engine struct {
	cache    *identity.Cache
	settings atomic.Pointer[settings]
	reporter *Reporter
	logger   zerolog.Logger
	traps    object.Traps

	// passthrough is decided once at construction.
	passthrough bool
}

// New creates an engine. Without weak reference support the engine is a
// permanent passthrough.
func New(opts ...Option) *Engine {
	var cfg engineConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := logging.Default()
	if cfg.logger != nil {
		logger = *cfg.logger
	}

	e := &Engine{
		cache:       identity.New(),
		reporter:    NewReporter(logger),
		logger:      logger,
		passthrough: cfg.passthrough || !identity.Supported(),
	}
	e.traps = object.Traps{
		Get:            e.get,
		Set:            e.set,
		DefineProperty: e.defineProperty,
		DeleteProperty: e.deleteProperty,
		SetPrototypeOf: e.setPrototypeOf,
	}
	e.Configure(cfg.options)
	return e
}

// Configure replaces the configuration wholesale. Nil fields select the
// defaults. The change is visible to every later operation, including ones
// nested inside a handler call in progress.
func (e *Engine) Configure(opts Options) {
	s := &settings{
		ignore:  opts.Ignore,
		handler: opts.Handler,
	}
	if s.ignore == nil {
		s.ignore = ignoreNothing
	}
	if s.handler == nil {
		s.handler = e.reporter.Report
	}
	e.settings.Store(s)
}

// Passthrough reports whether the engine returns every value unwrapped.
func (e *Engine) Passthrough() bool {
	return e.passthrough
}

// Wrap returns the stand-in for v, creating it on first use. Nil values,
// primitives, ignored values and stand-ins are returned unchanged.
func (e *Engine) Wrap(v object.Value) object.Value {
	if e.passthrough {
		return v
	}
	target, ok := object.AsObject(v)
	if !ok {
		return v
	}
	if e.settings.Load().ignore(v) {
		return v
	}
	if e.cache.IsKnown(target) {
		return v
	}
	if standIn, ok := e.cache.Lookup(target); ok {
		return standIn
	}
	return e.cache.Register(target, object.NewProxy(target, e.traps))
}

// IsStandIn reports whether v is a stand-in produced by this engine.
func (e *Engine) IsStandIn(v object.Value) bool {
	return e.cache.IsKnown(v)
}

// get wraps the value read from an own property, unless the property is a
// non-writable, non-configurable one whose stored value must be returned
// as is.
func (e *Engine) get(target object.Object, key object.Key, receiver object.Value) (object.Value, error) {
	v, err := target.Get(key, receiver)
	if err != nil {
		return nil, err
	}
	desc, own := target.GetOwnProperty(key)
	if !own || !(desc.Writable || desc.Configurable) {
		return v, nil
	}
	if e.cache.IsKnown(v) {
		return v, nil
	}
	return e.Wrap(v), nil
}

// defineProperty reports a definition that adds the property, changes its
// value, or installs a getter, then applies it.
func (e *Engine) defineProperty(target object.Object, key object.Key, desc object.Descriptor) bool {
	current, ok := target.GetOwnProperty(key)
	if !ok || !object.SameValue(current.Value, desc.Value) || desc.Get != nil {
		e.emit(Record{
			Kind:       KindDefineProperty,
			Target:     target,
			Property:   key,
			Descriptor: desc,
		})
	}
	return target.DefineOwnProperty(key, desc)
}

// deleteProperty reports removal of an existing own property, then deletes.
func (e *Engine) deleteProperty(target object.Object, key object.Key) bool {
	if _, ok := target.GetOwnProperty(key); ok {
		e.emit(Record{
			Kind:     KindDeleteProperty,
			Target:   target,
			Property: key,
		})
	}
	return target.Delete(key)
}

// set reports an assignment that is not equivalent to the current value,
// then assigns on the target.
func (e *Engine) set(target object.Object, key object.Key, value object.Value, _ object.Value) (bool, error) {
	current, err := target.Get(key, target)
	if err != nil {
		return false, err
	}
	if !e.Equivalent(current, value) {
		e.emit(Record{
			Kind:     KindSet,
			Target:   target,
			Property: key,
			Value:    value,
		})
	}
	return target.Set(key, value, target)
}

// setPrototypeOf reports a prototype change to a different object, then
// applies it.
func (e *Engine) setPrototypeOf(target object.Object, proto object.Object) bool {
	if !object.SameValue(target.GetPrototypeOf(), proto) {
		e.emit(Record{
			Kind:      KindSetPrototype,
			Target:    target,
			Property:  PrototypeProperty,
			Prototype: proto,
		})
	}
	return target.SetPrototypeOf(proto)
}

// emit delivers r to the current handler. A handler panic is logged and
// swallowed.
func (e *Engine) emit(r Record) {
	handler := e.settings.Load().handler

	defer func() {
		if rec := recover(); rec != nil {
			err := &HandlerPanicError{
				Record: r,
				Value:  rec,
				Stack:  string(debug.Stack()),
			}
			e.logger.Error().
				Err(err).
				Str("kind", r.Kind.String()).
				Str("property", r.Property).
				Msg("mutation handler panicked")
		}
	}()

	handler(r)
}
