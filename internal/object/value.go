package object

import (
	"fmt"
	"math"
	"reflect"
	"sync/atomic"
)

// Value is any runtime value: a primitive (nil, bool, number, string, or any
// other Go value) or an Object.
type Value = any

// Key names a property. Array elements use canonical decimal indices.
type Key = string

// Kind tags what an Object can do beyond holding properties.
type Kind int

const (
	// KindRecord is a plain keyed record.
	KindRecord Kind = iota

	// KindSequence is an array-like object with an exotic length.
	KindSequence

	// KindCallable is an object that can be called.
	KindCallable
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindSequence:
		return "sequence"
	case KindCallable:
		return "callable"
	default:
		return "unknown"
	}
}

// ParseKind returns the kind named by s.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "record":
		return KindRecord, true
	case "sequence":
		return KindSequence, true
	case "callable":
		return KindCallable, true
	default:
		return 0, false
	}
}

// Identity is the per-object handle that defines object identity.
type Identity struct {
	seq   uint64
	label string
}

var identitySeq atomic.Uint64

// NewIdentity allocates a fresh identity. The label is used for diagnostics only.
func NewIdentity(label string) *Identity {
	return &Identity{seq: identitySeq.Add(1), label: label}
}

// String returns a short diagnostic form such as "record#12".
func (id *Identity) String() string {
	if id == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d", id.label, id.seq)
}

// Object is the structural protocol shared by ordinary objects and proxies.
type Object interface {
	// Kind reports the capability tag of the object.
	Kind() Kind

	// Identity returns the object's identity handle. It is nil only for a
	// typed nil object.
	Identity() *Identity

	GetPrototypeOf() Object
	SetPrototypeOf(proto Object) bool
	IsExtensible() bool
	PreventExtensions() bool

	// GetOwnProperty returns a copy of the own property descriptor for key.
	GetOwnProperty(key Key) (Descriptor, bool)

	// DefineOwnProperty creates or redefines an own property.
	DefineOwnProperty(key Key, desc Descriptor) bool

	// Has reports whether key is an own or inherited property.
	Has(key Key) bool

	// Get reads key, walking the prototype chain. Accessors are invoked with
	// receiver as this.
	Get(key Key, receiver Value) (Value, error)

	// Set assigns key. New or updated data properties land on receiver.
	Set(key Key, value Value, receiver Value) (bool, error)

	// Delete removes an own property. Deleting a missing key succeeds.
	Delete(key Key) bool

	// OwnKeys lists own keys: array indices ascending, then the rest in
	// insertion order.
	OwnKeys() []Key
}

// Callable is an Object that can be invoked.
type Callable interface {
	Object
	Call(this Value, args ...Value) (Value, error)
}

// AsObject returns v as an Object when it is a non-nil object.
func AsObject(v Value) (Object, bool) {
	o, ok := v.(Object)
	if !ok || o.Identity() == nil {
		return nil, false
	}
	return o, true
}

// IsNullish reports whether v is nil, including a typed nil pointer.
func IsNullish(v Value) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// IsObservable reports whether v is a structured or callable value that can
// be wrapped.
func IsObservable(v Value) bool {
	_, ok := AsObject(v)
	return ok
}

// IsCallable reports whether v is an object with the callable capability.
func IsCallable(v Value) bool {
	o, ok := AsObject(v)
	return ok && o.Kind() == KindCallable
}

// SameValue reports whether a and b are identical: objects by identity,
// numbers by numeric value across Go numeric types, other values by ==.
// NaN is never identical to itself.
func SameValue(a, b Value) bool {
	ao, aok := AsObject(a)
	bo, bok := AsObject(b)
	if aok || bok {
		return aok && bok && ao.Identity() == bo.Identity()
	}

	if IsNullish(a) || IsNullish(b) {
		return IsNullish(a) && IsNullish(b)
	}

	if na, ok := asNumber(a); ok {
		nb, ok := asNumber(b)
		return ok && na.equal(nb)
	}

	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

type numberClass int

const (
	signedNumber numberClass = iota
	unsignedNumber
	floatNumber
)

// number holds a Go numeric value without losing integer precision.
type number struct {
	class numberClass
	i     int64
	u     uint64
	f     float64
}

func asNumber(v Value) (number, bool) {
	if i, ok := asInt(v); ok {
		return number{class: signedNumber, i: i}, true
	}
	if u, ok := asUint(v); ok {
		return number{class: unsignedNumber, u: u}, true
	}
	switch n := v.(type) {
	case float32:
		return number{class: floatNumber, f: float64(n)}, true
	case float64:
		return number{class: floatNumber, f: n}, true
	}
	return number{}, false
}

// equal compares exactly. Integers never pass through float64; a float
// matches an integer only when it is integral and in range.
func (n number) equal(m number) bool {
	if n.class > m.class {
		n, m = m, n
	}
	switch {
	case n.class == signedNumber && m.class == signedNumber:
		return n.i == m.i
	case n.class == signedNumber && m.class == unsignedNumber:
		return n.i >= 0 && uint64(n.i) == m.u
	case n.class == unsignedNumber && m.class == unsignedNumber:
		return n.u == m.u
	case m.class == floatNumber && n.class == floatNumber:
		return n.f == m.f
	case n.class == signedNumber:
		f := m.f
		if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
			return false
		}
		return int64(f) == n.i
	default:
		f := m.f
		if f != math.Trunc(f) || f < 0 || f >= 1<<64 {
			return false
		}
		return uint64(f) == n.u
	}
}

func asInt(v Value) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func asUint(v Value) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case uintptr:
		return uint64(n), true
	}
	return 0, false
}

// Describe returns a short diagnostic form of v.
func Describe(v Value) string {
	if o, ok := AsObject(v); ok {
		return o.Identity().String()
	}
	if IsNullish(v) {
		return "nil"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}
