package object

// Traps holds the optional interception hooks of a Proxy. A nil trap forwards
// the operation to the target unchanged.
type Traps struct {
	Get            func(target Object, key Key, receiver Value) (Value, error)
	Set            func(target Object, key Key, value Value, receiver Value) (bool, error)
	DefineProperty func(target Object, key Key, desc Descriptor) bool
	DeleteProperty func(target Object, key Key) bool
	SetPrototypeOf func(target Object, proto Object) bool
}

// Proxy is an Object that forwards to a target, routing trapped operations
// through Traps. It has its own identity distinct from the target's.
type Proxy struct {
	id     *Identity
	target Object
	traps  Traps
}

// NewProxy creates a proxy over target.
func NewProxy(target Object, traps Traps) *Proxy {
	return &Proxy{
		id:     NewIdentity("proxy(" + target.Identity().String() + ")"),
		target: target,
		traps:  traps,
	}
}

// Target returns the proxied object.
func (p *Proxy) Target() Object {
	return p.target
}

// Kind implements Object. A proxy has its target's capabilities.
func (p *Proxy) Kind() Kind {
	return p.target.Kind()
}

// Identity implements Object.
func (p *Proxy) Identity() *Identity {
	if p == nil {
		return nil
	}
	return p.id
}

// GetPrototypeOf implements Object.
func (p *Proxy) GetPrototypeOf() Object {
	return p.target.GetPrototypeOf()
}

// SetPrototypeOf implements Object.
func (p *Proxy) SetPrototypeOf(proto Object) bool {
	if p.traps.SetPrototypeOf != nil {
		return p.traps.SetPrototypeOf(p.target, proto)
	}
	return p.target.SetPrototypeOf(proto)
}

// IsExtensible implements Object.
func (p *Proxy) IsExtensible() bool {
	return p.target.IsExtensible()
}

// PreventExtensions implements Object.
func (p *Proxy) PreventExtensions() bool {
	return p.target.PreventExtensions()
}

// GetOwnProperty implements Object.
func (p *Proxy) GetOwnProperty(key Key) (Descriptor, bool) {
	return p.target.GetOwnProperty(key)
}

// DefineOwnProperty implements Object.
func (p *Proxy) DefineOwnProperty(key Key, desc Descriptor) bool {
	if p.traps.DefineProperty != nil {
		return p.traps.DefineProperty(p.target, key, desc)
	}
	return p.target.DefineOwnProperty(key, desc)
}

// Has implements Object.
func (p *Proxy) Has(key Key) bool {
	return p.target.Has(key)
}

// Get implements Object. A trapped read of a non-writable, non-configurable
// own data property must return the stored value itself, and a read of a
// non-configurable accessor without a getter must return nil; any other
// result is an *InvariantError.
func (p *Proxy) Get(key Key, receiver Value) (Value, error) {
	if p.traps.Get == nil {
		return p.target.Get(key, receiver)
	}
	v, err := p.traps.Get(p.target, key, receiver)
	if err != nil {
		return nil, err
	}
	if d, ok := p.target.GetOwnProperty(key); ok && !d.Configurable {
		if !d.IsAccessor() && !d.Writable && !SameValue(v, d.Value) {
			return nil, &InvariantError{Key: key, Want: d.Value, Got: v}
		}
		if d.IsAccessor() && d.Get == nil && !IsNullish(v) {
			return nil, &InvariantError{Key: key, Want: nil, Got: v}
		}
	}
	return v, nil
}

// Set implements Object.
func (p *Proxy) Set(key Key, value Value, receiver Value) (bool, error) {
	if p.traps.Set != nil {
		return p.traps.Set(p.target, key, value, receiver)
	}
	return p.target.Set(key, value, receiver)
}

// Delete implements Object.
func (p *Proxy) Delete(key Key) bool {
	if p.traps.DeleteProperty != nil {
		return p.traps.DeleteProperty(p.target, key)
	}
	return p.target.Delete(key)
}

// OwnKeys implements Object.
func (p *Proxy) OwnKeys() []Key {
	return p.target.OwnKeys()
}

// Call implements Callable by forwarding to a callable target.
func (p *Proxy) Call(this Value, args ...Value) (Value, error) {
	fn, ok := p.target.(Callable)
	if !ok || p.target.Kind() != KindCallable {
		return nil, ErrNotCallable
	}
	return fn.Call(this, args...)
}

// String returns the identity label.
func (p *Proxy) String() string {
	return p.id.String()
}
