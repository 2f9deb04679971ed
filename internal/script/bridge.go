package script

import (
	"math"
	"slices"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/mutwatch/internal/object"
)

// objectTypeName names the metatable shared by all object userdata.
const objectTypeName = "mutwatch.object"

// Bridge converts between the object model and Lua values.
//
// Objects cross into Lua as userdata whose metatable forwards field access,
// assignment, length and calls to the object. A fresh userdata is made for
// every crossing, so Lua never keeps an object alive past the values that
// reference it; __eq compares object identity.
type Bridge struct {
	L       *lua.LState
	sandbox *Sandbox
	mt      *lua.LTable
}

// NewBridge creates a Bridge for the given Lua state and installs the object
// metatable. A nil sandbox disables operation counting.
func NewBridge(L *lua.LState, sandbox *Sandbox) *Bridge {
	b := &Bridge{L: L, sandbox: sandbox}
	b.mt = L.NewTypeMetatable(objectTypeName)
	L.SetFuncs(b.mt, map[string]lua.LGFunction{
		"__index":    b.index,
		"__newindex": b.newIndex,
		"__len":      b.length,
		"__call":     b.call,
		"__tostring": b.tostring,
		"__eq":       b.equal,
	})
	return b
}

// ToLua converts a value to Lua. Objects become userdata; numbers, strings and
// booleans map directly; anything else becomes its string form.
func (b *Bridge) ToLua(v object.Value) lua.LValue {
	if o, ok := object.AsObject(v); ok {
		ud := b.L.NewUserData()
		ud.Value = o
		ud.Metatable = b.mt
		return ud
	}
	if object.IsNullish(v) {
		return lua.LNil
	}

	switch val := v.(type) {
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case lua.LValue:
		return val
	default:
		return lua.LString(object.Describe(v))
	}
}

// ToValue converts a Lua value to the object model. Userdata made by ToLua
// yields its object. Tables become new objects: sequences when their keys are
// exactly 1..n, records otherwise. Functions become callables.
func (b *Bridge) ToValue(lv lua.LValue) object.Value {
	return b.toValue(lv, make(map[*lua.LTable]object.Object))
}

func (b *Bridge) toValue(lv lua.LValue, visited map[*lua.LTable]object.Object) object.Value {
	switch v := lv.(type) {
	case nil, *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LUserData:
		if o, ok := v.Value.(object.Object); ok {
			return o
		}
		return v.Value
	case *lua.LTable:
		if o, ok := visited[v]; ok {
			return o
		}
		return b.tableToObject(v, visited)
	case *lua.LFunction:
		return b.funcToCallable(v)
	default:
		return lv.String()
	}
}

// tableToObject converts a table, reusing objects for tables already seen so
// shared and cyclic tables keep their shape.
func (b *Bridge) tableToObject(t *lua.LTable, visited map[*lua.LTable]object.Object) object.Object {
	if isSequence(t) {
		n := t.Len()
		arr := object.NewArray()
		visited[t] = arr
		for i := 1; i <= n; i++ {
			object.Push(arr, b.toValue(t.RawGetInt(i), visited))
		}
		return arr
	}

	rec := object.NewRecord()
	visited[t] = rec

	type field struct {
		key   string
		value lua.LValue
	}
	var fields []field
	t.ForEach(func(k, v lua.LValue) {
		if key, ok := luaKey(k); ok {
			fields = append(fields, field{key, v})
		}
	})
	slices.SortFunc(fields, func(x, y field) int {
		return strings.Compare(x.key, y.key)
	})
	for _, f := range fields {
		object.DefineProperty(rec, f.key, object.DataProperty(b.toValue(f.value, visited)))
	}
	return rec
}

// isSequence reports whether the keys of t are exactly 1..n with no holes.
func isSequence(t *lua.LTable) bool {
	n := t.Len()
	if n == 0 {
		return false
	}
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })
	if count != n {
		return false
	}
	for i := 1; i <= n; i++ {
		if t.RawGetInt(i) == lua.LNil {
			return false
		}
	}
	return true
}

// funcToCallable wraps a Lua function. The receiver, when present, is passed
// as the first argument, so accessors defined from Lua see their object as
// self.
func (b *Bridge) funcToCallable(fn *lua.LFunction) *object.Ordinary {
	return object.NewFunc("lua", func(this object.Value, args []object.Value) (object.Value, error) {
		largs := make([]lua.LValue, 0, len(args)+1)
		if !object.IsNullish(this) {
			largs = append(largs, b.ToLua(this))
		}
		for _, a := range args {
			largs = append(largs, b.ToLua(a))
		}

		if err := b.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, largs...); err != nil {
			return nil, err
		}
		ret := b.L.Get(-1)
		b.L.Pop(1)
		return b.ToValue(ret), nil
	})
}

// luaKey turns a Lua table key or field name into a property key. Integral
// numbers use their decimal form; other types are not valid keys.
func luaKey(k lua.LValue) (object.Key, bool) {
	switch v := k.(type) {
	case lua.LString:
		return string(v), true
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return strconv.FormatInt(int64(f), 10), true
		}
		return strconv.FormatFloat(f, 'g', -1, 64), true
	default:
		return "", false
	}
}

// CheckObject returns the object held by argument n or raises an argument
// error.
func (b *Bridge) CheckObject(L *lua.LState, n int) object.Object {
	ud, ok := L.Get(n).(*lua.LUserData)
	if ok {
		if o, ok := ud.Value.(object.Object); ok {
			return o
		}
	}
	L.ArgError(n, "object expected")
	return nil
}

// checkKey returns argument n as a property key or raises an argument error.
func (b *Bridge) checkKey(L *lua.LState, n int) object.Key {
	key, ok := luaKey(L.Get(n))
	if !ok {
		L.ArgError(n, "string or number key expected")
	}
	return key
}

// count charges one operation to the sandbox.
func (b *Bridge) count(L *lua.LState) {
	if b.sandbox != nil {
		b.sandbox.Check(L)
	}
}

func (b *Bridge) index(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	key := b.checkKey(L, 2)
	b.count(L)

	v, err := object.Get(o, key)
	if err != nil {
		L.RaiseError("reading %q: %s", key, err.Error())
	}
	L.Push(b.ToLua(v))
	return 1
}

func (b *Bridge) newIndex(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	key := b.checkKey(L, 2)
	b.count(L)

	ok, err := object.Set(o, key, b.ToValue(L.Get(3)))
	if err != nil {
		L.RaiseError("assigning %q: %s", key, err.Error())
	}
	if !ok {
		L.RaiseError("assignment to %q refused", key)
	}
	return 0
}

func (b *Bridge) length(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	b.count(L)

	L.Push(lua.LNumber(object.Length(o)))
	return 1
}

func (b *Bridge) call(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	fn, ok := o.(object.Callable)
	if !ok || o.Kind() != object.KindCallable {
		L.RaiseError("%s is not callable", object.Describe(o))
	}
	b.count(L)

	args := make([]object.Value, 0, L.GetTop()-1)
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, b.ToValue(L.Get(i)))
	}

	ret, err := fn.Call(nil, args...)
	if err != nil {
		L.RaiseError("calling %s: %s", object.Describe(o), err.Error())
	}
	L.Push(b.ToLua(ret))
	return 1
}

func (b *Bridge) tostring(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	L.Push(lua.LString(object.Describe(o)))
	return 1
}

func (b *Bridge) equal(L *lua.LState) int {
	a := b.CheckObject(L, 1)
	c := b.CheckObject(L, 2)
	L.Push(lua.LBool(a.Identity() == c.Identity()))
	return 1
}
