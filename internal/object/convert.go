package object

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// FromGo converts a Go value into the object model. Maps with string keys and
// structs become records (map keys sorted, struct fields in declaration order
// named by their json tag), slices and arrays become sequences, and pointers
// are followed. Objects and primitives are returned as is. Go funcs of type
// Func become callables.
func FromGo(v any) Value {
	switch val := v.(type) {
	case nil:
		return nil
	case Object:
		return val
	case Func:
		return NewFunc("", val)
	case bool, string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return val
	case []any:
		arr := NewArray()
		for _, e := range val {
			arr.appendElement(FromGo(e))
		}
		return arr
	case map[string]any:
		rec := NewRecord()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rec.DefineOwnProperty(k, DataProperty(FromGo(val[k])))
		}
		return rec
	default:
		return reflectFromGo(reflect.ValueOf(v))
	}
}

// reflectFromGo uses reflection for types the fast path does not cover.
func reflectFromGo(rv reflect.Value) Value {
	if !rv.IsValid() {
		return nil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return FromGo(rv.Elem().Interface())

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		arr := NewArray()
		for i := 0; i < rv.Len(); i++ {
			arr.appendElement(FromGo(rv.Index(i).Interface()))
		}
		return arr

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return rv.Interface()
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		rec := NewRecord()
		for _, k := range keys {
			rec.DefineOwnProperty(k.String(), DataProperty(FromGo(rv.MapIndex(k).Interface())))
		}
		return rec

	case reflect.Struct:
		return structToRecord(rv)

	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()

	default:
		return rv.Interface()
	}
}

// structToRecord converts the exported fields of a struct.
func structToRecord(rv reflect.Value) *Ordinary {
	rec := NewRecord()
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if field.PkgPath != "" {
			continue
		}

		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}

		rec.DefineOwnProperty(name, DataProperty(FromGo(rv.Field(i).Interface())))
	}

	return rec
}

// ToGo converts an object graph back into plain Go values: records become
// map[string]any, sequences []any, callables nil. Objects are read through
// their own Get. A cycle is reported as an error.
func ToGo(v Value) (any, error) {
	return toGoWithVisited(v, make(map[*Identity]bool))
}

func toGoWithVisited(v Value, visited map[*Identity]bool) (any, error) {
	o, ok := AsObject(v)
	if !ok {
		if IsNullish(v) {
			return nil, nil
		}
		return v, nil
	}
	if o.Kind() == KindCallable {
		return nil, nil
	}
	if visited[o.Identity()] {
		return nil, fmt.Errorf("converting %s: %w", o.Identity(), ErrCycle)
	}
	visited[o.Identity()] = true
	defer delete(visited, o.Identity())

	if o.Kind() == KindSequence {
		n := Length(o)
		out := make([]any, n)
		for i := range n {
			e, err := o.Get(fmt.Sprint(i), o)
			if err != nil {
				return nil, err
			}
			if out[i], err = toGoWithVisited(e, visited); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	out := make(map[string]any)
	for _, k := range Keys(o) {
		e, err := o.Get(k, o)
		if err != nil {
			return nil, err
		}
		if out[k], err = toGoWithVisited(e, visited); err != nil {
			return nil, err
		}
	}
	return out, nil
}
