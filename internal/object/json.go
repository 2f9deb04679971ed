package object

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ParseJSON builds an object graph from JSON text. Objects become records
// with keys in document order, arrays become sequences, integral numbers
// become int64 and other numbers float64.
func ParseJSON(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

func fromResult(r gjson.Result) Value {
	switch {
	case r.IsObject():
		rec := NewRecord()
		r.ForEach(func(k, v gjson.Result) bool {
			rec.DefineOwnProperty(k.String(), DataProperty(fromResult(v)))
			return true
		})
		return rec
	case r.IsArray():
		arr := NewArray()
		for _, v := range r.Array() {
			arr.appendElement(fromResult(v))
		}
		return arr
	}

	switch r.Type {
	case gjson.True, gjson.False:
		return r.Bool()
	case gjson.Number:
		if !strings.ContainsAny(r.Raw, ".eE") {
			if n, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
				return n
			}
		}
		return r.Num
	case gjson.String:
		return r.Str
	default:
		return nil
	}
}

// MarshalJSON serializes v. Objects are read through their own Get, so a
// stand-in serializes as its target's content. Only enumerable properties are
// written, callables encode as null, and a cycle fails with ErrCycle.
func MarshalJSON(v Value) ([]byte, error) {
	return encodeJSON(v, make(map[*Identity]bool))
}

func encodeJSON(v Value, seen map[*Identity]bool) ([]byte, error) {
	o, ok := AsObject(v)
	if !ok {
		if IsNullish(v) {
			return []byte("null"), nil
		}
		return json.Marshal(v)
	}
	if o.Kind() == KindCallable {
		return []byte("null"), nil
	}
	if seen[o.Identity()] {
		return nil, ErrCycle
	}
	seen[o.Identity()] = true
	defer delete(seen, o.Identity())

	if o.Kind() == KindSequence {
		out := []byte("[]")
		for i := 0; i < Length(o); i++ {
			raw, err := encodeChild(o, strconv.Itoa(i), seen)
			if err != nil {
				return nil, err
			}
			if out, err = sjson.SetRawBytes(out, strconv.Itoa(i), raw); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	out := []byte("{}")
	for _, k := range Keys(o) {
		raw, err := encodeChild(o, k, seen)
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, escapeJSONPath(k), raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func encodeChild(o Object, key Key, seen map[*Identity]bool) ([]byte, error) {
	child, err := o.Get(key, o)
	if err != nil {
		return nil, err
	}
	return encodeJSON(child, seen)
}

// escapeJSONPath turns a property name into an sjson path naming exactly
// that key on an object. All-digit names are forced to object keys with ':'.
func escapeJSONPath(key Key) string {
	var b strings.Builder
	if isDigits(key) {
		b.WriteByte(':')
	}
	for _, r := range key {
		if !isPathSafe(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isPathSafe(r rune) bool {
	return r == '_' || r > 0x7f ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
