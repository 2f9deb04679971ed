package object

import (
	"strconv"

	"github.com/samber/lo"
)

// Get reads key from o with o as the receiver.
func Get(o Object, key Key) (Value, error) {
	return o.Get(key, o)
}

// Set assigns key on o with o as the receiver. A false result means the
// assignment was refused.
func Set(o Object, key Key, value Value) (bool, error) {
	return o.Set(key, value, o)
}

// DefineProperty defines key on o.
func DefineProperty(o Object, key Key, desc Descriptor) bool {
	return o.DefineOwnProperty(key, desc)
}

// DeleteProperty deletes key from o.
func DeleteProperty(o Object, key Key) bool {
	return o.Delete(key)
}

// SetPrototype replaces the prototype of o.
func SetPrototype(o Object, proto Object) bool {
	return o.SetPrototypeOf(proto)
}

// Keys returns the own enumerable keys of o in property order.
func Keys(o Object) []Key {
	return lo.Filter(o.OwnKeys(), func(k Key, _ int) bool {
		d, ok := o.GetOwnProperty(k)
		return ok && d.Enumerable
	})
}

// Length returns the length of a sequence, or 0 for other objects.
func Length(o Object) int {
	if o.Kind() != KindSequence {
		return 0
	}
	v, err := o.Get(lengthKey, o)
	if err != nil {
		return 0
	}
	n, _ := toLength(v)
	return n
}

// Push appends values to the end of a sequence through o's own Set.
func Push(o Object, values ...Value) (bool, error) {
	for _, v := range values {
		ok, err := Set(o, strconv.Itoa(Length(o)), v)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

// ShallowCopy copies the own enumerable properties of o into a fresh
// ordinary object, reading each through o. Sequences copy into a sequence,
// everything else into a record. Nested objects are shared, not copied.
func ShallowCopy(o Object) (*Ordinary, error) {
	var dst *Ordinary
	if o.Kind() == KindSequence {
		dst = NewArray()
	} else {
		dst = NewRecord()
	}
	for _, k := range Keys(o) {
		v, err := o.Get(k, o)
		if err != nil {
			return nil, err
		}
		dst.DefineOwnProperty(k, DataProperty(v))
	}
	return dst, nil
}

// Freeze makes o non-extensible and every own property non-configurable,
// and every own data property non-writable. It reports whether every step
// was accepted.
func Freeze(o Object) bool {
	ok := o.PreventExtensions()
	for _, k := range o.OwnKeys() {
		d, has := o.GetOwnProperty(k)
		if !has {
			continue
		}
		d.Configurable = false
		if !d.IsAccessor() {
			d.Writable = false
		}
		ok = o.DefineOwnProperty(k, d) && ok
	}
	return ok
}

// IsFrozen reports whether o is non-extensible with only non-configurable,
// non-writable own properties.
func IsFrozen(o Object) bool {
	if o.IsExtensible() {
		return false
	}
	for _, k := range o.OwnKeys() {
		d, _ := o.GetOwnProperty(k)
		if d.Configurable || (!d.IsAccessor() && d.Writable) {
			return false
		}
	}
	return true
}
