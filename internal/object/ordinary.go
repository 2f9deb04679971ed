package object

import (
	"slices"
	"strconv"
)

// Func is the Go implementation behind a callable object.
type Func func(this Value, args []Value) (Value, error)

// Ordinary is the built-in Object implementation for records, sequences and
// callables.
//
// Ordinary is not safe for concurrent use; callers sharing one across
// goroutines must lock externally.
type Ordinary struct {
	id         *Identity
	kind       Kind
	proto      Object
	extensible bool

	keys  []Key
	props map[Key]*Descriptor

	// sequences only
	length         int
	lengthWritable bool

	// callables only
	fn Func
}

const lengthKey = "length"

func newOrdinary(kind Kind) *Ordinary {
	return &Ordinary{
		id:             NewIdentity(kind.String()),
		kind:           kind,
		extensible:     true,
		props:          make(map[Key]*Descriptor),
		lengthWritable: true,
	}
}

// NewRecord creates an empty extensible record with no prototype.
func NewRecord() *Ordinary {
	return newOrdinary(KindRecord)
}

// NewRecordWithProto creates an empty record inheriting from proto.
func NewRecordWithProto(proto Object) *Ordinary {
	o := newOrdinary(KindRecord)
	o.proto = proto
	return o
}

// NewArray creates a sequence holding elems.
func NewArray(elems ...Value) *Ordinary {
	o := newOrdinary(KindSequence)
	for _, v := range elems {
		o.appendElement(v)
	}
	return o
}

// NewFunc creates a callable object. The name is exposed as a non-writable
// "name" property.
func NewFunc(name string, fn Func) *Ordinary {
	o := newOrdinary(KindCallable)
	o.fn = fn
	o.DefineOwnProperty("name", Descriptor{Value: name, Configurable: true})
	return o
}

func (o *Ordinary) appendElement(v Value) {
	key := strconv.Itoa(o.length)
	o.props[key] = &Descriptor{Value: v, Writable: true, Enumerable: true, Configurable: true}
	o.keys = append(o.keys, key)
	o.length++
}

// Kind implements Object.
func (o *Ordinary) Kind() Kind {
	return o.kind
}

// Identity implements Object.
func (o *Ordinary) Identity() *Identity {
	if o == nil {
		return nil
	}
	return o.id
}

// GetPrototypeOf implements Object.
func (o *Ordinary) GetPrototypeOf() Object {
	return o.proto
}

// SetPrototypeOf implements Object. It refuses changes on non-extensible
// objects and changes that would create a prototype cycle.
func (o *Ordinary) SetPrototypeOf(proto Object) bool {
	if SameValue(o.proto, proto) {
		return true
	}
	if !o.extensible {
		return false
	}
	for p := proto; !IsNullish(p); p = p.GetPrototypeOf() {
		if p.Identity() == o.id {
			return false
		}
	}
	if IsNullish(proto) {
		proto = nil
	}
	o.proto = proto
	return true
}

// IsExtensible implements Object.
func (o *Ordinary) IsExtensible() bool {
	return o.extensible
}

// PreventExtensions implements Object.
func (o *Ordinary) PreventExtensions() bool {
	o.extensible = false
	return true
}

// GetOwnProperty implements Object.
func (o *Ordinary) GetOwnProperty(key Key) (Descriptor, bool) {
	if o.kind == KindSequence && key == lengthKey {
		return Descriptor{Value: o.length, Writable: o.lengthWritable}, true
	}
	d, ok := o.props[key]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// DefineOwnProperty implements Object.
func (o *Ordinary) DefineOwnProperty(key Key, desc Descriptor) bool {
	if o.kind == KindSequence {
		if key == lengthKey {
			return o.defineLength(desc)
		}
		if idx, ok := arrayIndex(key); ok {
			if idx >= o.length && !o.lengthWritable {
				return false
			}
			if !o.defineOrdinary(key, desc) {
				return false
			}
			if idx >= o.length {
				o.length = idx + 1
			}
			return true
		}
	}
	return o.defineOrdinary(key, desc)
}

func (o *Ordinary) defineOrdinary(key Key, desc Descriptor) bool {
	current, ok := o.props[key]
	if !ok {
		if !o.extensible {
			return false
		}
		d := desc
		o.props[key] = &d
		o.keys = append(o.keys, key)
		return true
	}
	if !current.Configurable && !compatible(*current, desc) {
		return false
	}
	*current = desc
	return true
}

// defineLength applies a redefinition of a sequence's length. Shrinking
// deletes trailing elements; a non-configurable element stops the truncation
// just above itself and the define fails.
func (o *Ordinary) defineLength(desc Descriptor) bool {
	if desc.IsAccessor() || desc.Configurable || desc.Enumerable {
		return false
	}
	newLen, ok := toLength(desc.Value)
	if !ok {
		return false
	}
	if newLen != o.length && !o.lengthWritable {
		return false
	}
	if !o.lengthWritable && desc.Writable {
		return false
	}

	if newLen < o.length {
		stop := o.truncationPoint(newLen)
		o.keys = slices.DeleteFunc(o.keys, func(k Key) bool {
			idx, ok := arrayIndex(k)
			if !ok || idx < stop {
				return false
			}
			delete(o.props, k)
			return true
		})
		if stop > newLen {
			o.length = stop
			o.lengthWritable = desc.Writable && o.lengthWritable
			return false
		}
	}
	o.length = newLen
	if !desc.Writable {
		o.lengthWritable = false
	}
	return true
}

// truncationPoint returns the lowest length at or above newLen that keeps
// every non-configurable element. Only present elements are visited.
func (o *Ordinary) truncationPoint(newLen int) int {
	stop := newLen
	for _, k := range o.keys {
		idx, ok := arrayIndex(k)
		if ok && idx >= stop && !o.props[k].Configurable {
			stop = idx + 1
		}
	}
	return stop
}

// Has implements Object.
func (o *Ordinary) Has(key Key) bool {
	if _, ok := o.GetOwnProperty(key); ok {
		return true
	}
	if o.proto != nil {
		return o.proto.Has(key)
	}
	return false
}

// Get implements Object.
func (o *Ordinary) Get(key Key, receiver Value) (Value, error) {
	desc, ok := o.GetOwnProperty(key)
	if !ok {
		if o.proto != nil {
			return o.proto.Get(key, receiver)
		}
		return nil, nil
	}
	if desc.IsAccessor() {
		if desc.Get == nil {
			return nil, nil
		}
		return desc.Get.Call(receiver)
	}
	return desc.Value, nil
}

// Set implements Object.
func (o *Ordinary) Set(key Key, value Value, receiver Value) (bool, error) {
	desc, ok := o.GetOwnProperty(key)
	if !ok {
		if o.proto != nil {
			return o.proto.Set(key, value, receiver)
		}
		desc = DataProperty(nil)
	}
	return setWithDescriptor(key, value, receiver, desc)
}

// setWithDescriptor finishes an assignment once the property that governs it
// has been found on the prototype chain.
func setWithDescriptor(key Key, value, receiver Value, desc Descriptor) (bool, error) {
	if desc.IsAccessor() {
		if desc.Set == nil {
			return false, nil
		}
		if _, err := desc.Set.Call(receiver, value); err != nil {
			return false, err
		}
		return true, nil
	}
	if !desc.Writable {
		return false, nil
	}

	recv, ok := AsObject(receiver)
	if !ok {
		return false, nil
	}
	existing, has := recv.GetOwnProperty(key)
	if !has {
		return recv.DefineOwnProperty(key, DataProperty(value)), nil
	}
	if existing.IsAccessor() || !existing.Writable {
		return false, nil
	}
	existing.Value = value
	return recv.DefineOwnProperty(key, existing), nil
}

// Delete implements Object.
func (o *Ordinary) Delete(key Key) bool {
	if o.kind == KindSequence && key == lengthKey {
		return false
	}
	d, ok := o.props[key]
	if !ok {
		return true
	}
	if !d.Configurable {
		return false
	}
	o.removeKey(key)
	return true
}

func (o *Ordinary) removeKey(key Key) {
	delete(o.props, key)
	if i := slices.Index(o.keys, key); i >= 0 {
		o.keys = slices.Delete(o.keys, i, i+1)
	}
}

// OwnKeys implements Object.
func (o *Ordinary) OwnKeys() []Key {
	var indices []Key
	named := make([]Key, 0, len(o.keys)+1)
	if o.kind == KindSequence {
		named = append(named, lengthKey)
	}
	for _, k := range o.keys {
		if _, ok := arrayIndex(k); ok {
			indices = append(indices, k)
		} else {
			named = append(named, k)
		}
	}
	slices.SortFunc(indices, func(a, b Key) int {
		ai, _ := arrayIndex(a)
		bi, _ := arrayIndex(b)
		return ai - bi
	})
	return append(indices, named...)
}

// Call implements Callable. Records and sequences return ErrNotCallable.
func (o *Ordinary) Call(this Value, args ...Value) (Value, error) {
	if o.kind != KindCallable || o.fn == nil {
		return nil, ErrNotCallable
	}
	return o.fn(this, args)
}

// String returns the identity label.
func (o *Ordinary) String() string {
	return o.id.String()
}

// arrayIndex parses a canonical array index ("0", "1", ... without leading
// zeros).
func arrayIndex(key Key) (int, bool) {
	if key == "" || len(key) > 10 || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n := 0
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n >= 1<<32-1 {
		return 0, false
	}
	return n, true
}

func toLength(v Value) (int, bool) {
	n, ok := asNumber(v)
	if !ok {
		return 0, false
	}
	switch n.class {
	case signedNumber:
		return int(n.i), n.i >= 0 && n.i < 1<<32
	case unsignedNumber:
		return int(n.u), n.u < 1<<32
	default:
		l := int(n.f)
		return l, n.f >= 0 && n.f < 1<<32 && float64(l) == n.f
	}
}
