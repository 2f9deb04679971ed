package mutation

import (
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/dshills/mutwatch/internal/object"
)

// Kind identifies the structural operation a Record describes.
type Kind int

const (
	// KindDefineProperty is a property definition.
	KindDefineProperty Kind = iota

	// KindDeleteProperty is a deletion of an own property.
	KindDeleteProperty

	// KindSet is an assignment.
	KindSet

	// KindSetPrototype is a prototype change.
	KindSetPrototype
)

// PrototypeProperty is the Property of every KindSetPrototype record.
const PrototypeProperty = "[[Prototype]]"

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDefineProperty:
		return "defineProperty"
	case KindDeleteProperty:
		return "deleteProperty"
	case KindSet:
		return "set"
	case KindSetPrototype:
		return "setPrototype"
	default:
		return "unknown"
	}
}

// Record describes one observed structural change. Target is always the
// original object, never a stand-in.
type Record struct {
	Kind     Kind
	Target   object.Object
	Property object.Key

	// Descriptor is set for KindDefineProperty.
	Descriptor object.Descriptor

	// Value is the raw assigned value for KindSet.
	Value object.Value

	// Prototype is the new prototype for KindSetPrototype.
	Prototype object.Object
}

// String returns a one-line description of the record.
func (r Record) String() string {
	target := object.Describe(r.Target)
	switch r.Kind {
	case KindSet:
		return fmt.Sprintf("set %s.%q = %s", target, r.Property, object.Describe(r.Value))
	case KindDefineProperty:
		if r.Descriptor.IsAccessor() {
			return fmt.Sprintf("defineProperty %s.%q (accessor)", target, r.Property)
		}
		return fmt.Sprintf("defineProperty %s.%q = %s", target, r.Property, object.Describe(r.Descriptor.Value))
	case KindDeleteProperty:
		return fmt.Sprintf("deleteProperty %s.%q", target, r.Property)
	case KindSetPrototype:
		return fmt.Sprintf("setPrototype %s -> %s", target, object.Describe(r.Prototype))
	default:
		return fmt.Sprintf("unknown mutation of %s", target)
	}
}

// jsonField is one path/value pair written by MarshalJSON.
type jsonField struct {
	path  string
	value any
}

// MarshalJSON encodes the record as a JSON object. Object values are
// summarized by identity, not serialized.
func (r Record) MarshalJSON() ([]byte, error) {
	fields := []jsonField{
		{"kind", r.Kind.String()},
		{"target", object.Describe(r.Target)},
		{"property", r.Property},
	}

	switch r.Kind {
	case KindSet:
		fields = append(fields, jsonField{"value", jsonValue(r.Value)})
	case KindDefineProperty:
		d := r.Descriptor
		fields = append(fields,
			jsonField{"descriptor.accessor", d.IsAccessor()},
			jsonField{"descriptor.value", jsonValue(d.Value)},
			jsonField{"descriptor.writable", d.Writable},
			jsonField{"descriptor.enumerable", d.Enumerable},
			jsonField{"descriptor.configurable", d.Configurable},
		)
	case KindSetPrototype:
		fields = append(fields, jsonField{"prototype", object.Describe(r.Prototype)})
	}

	out := []byte(`{}`)
	var err error
	for _, f := range fields {
		if out, err = sjson.SetBytes(out, f.path, f.value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// jsonValue keeps primitives as they are and replaces objects with their
// identity label.
func jsonValue(v object.Value) any {
	if object.IsObservable(v) {
		return object.Describe(v)
	}
	if object.IsNullish(v) {
		return nil
	}
	return v
}
