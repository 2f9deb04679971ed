package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/mutwatch/internal/object"
)

// InstallGlobals registers the object helper functions. isStandIn answers the
// isstandin global; nil makes it always false.
func (b *Bridge) InstallGlobals(isStandIn func(object.Value) bool) {
	if isStandIn == nil {
		isStandIn = func(object.Value) bool { return false }
	}

	funcs := map[string]lua.LGFunction{
		"keys":     b.luaKeys,
		"remove":   b.luaRemove,
		"define":   b.luaDefine,
		"getproto": b.luaGetProto,
		"setproto": b.luaSetProto,
		"copy":     b.luaCopy,
		"freeze":   b.luaFreeze,
		"push":     b.luaPush,
		"json":     b.luaJSON,
		"isstandin": func(L *lua.LState) int {
			L.Push(lua.LBool(isStandIn(b.ToValue(L.Get(1)))))
			return 1
		},
	}
	for name, fn := range funcs {
		b.L.SetGlobal(name, b.L.NewFunction(fn))
	}
}

func (b *Bridge) luaKeys(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	b.count(L)

	t := L.NewTable()
	for _, k := range object.Keys(o) {
		t.Append(lua.LString(k))
	}
	L.Push(t)
	return 1
}

func (b *Bridge) luaRemove(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	key := b.checkKey(L, 2)
	b.count(L)

	L.Push(lua.LBool(object.DeleteProperty(o, key)))
	return 1
}

// luaDefine implements define(o, k, v [, d]). Without d the property is a
// plain writable, enumerable, configurable data property.
func (b *Bridge) luaDefine(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	key := b.checkKey(L, 2)
	b.count(L)

	desc := object.DataProperty(b.ToValue(L.Get(3)))
	if opts, ok := L.Get(4).(*lua.LTable); ok {
		desc = b.descriptorFromTable(L, desc, opts)
	}

	L.Push(lua.LBool(object.DefineProperty(o, key, desc)))
	return 1
}

func (b *Bridge) descriptorFromTable(L *lua.LState, desc object.Descriptor, t *lua.LTable) object.Descriptor {
	flag := func(name string, current bool) bool {
		if v, ok := t.RawGetString(name).(lua.LBool); ok {
			return bool(v)
		}
		return current
	}
	accessor := func(name string) object.Callable {
		switch v := t.RawGetString(name).(type) {
		case *lua.LFunction:
			return b.funcToCallable(v)
		case *lua.LNilType:
			return nil
		default:
			L.ArgError(4, name+" must be a function")
			return nil
		}
	}

	desc.Writable = flag("writable", desc.Writable)
	desc.Enumerable = flag("enumerable", desc.Enumerable)
	desc.Configurable = flag("configurable", desc.Configurable)
	desc.Get = accessor("get")
	desc.Set = accessor("set")
	if desc.IsAccessor() {
		desc.Value = nil
		desc.Writable = false
	}
	return desc
}

func (b *Bridge) luaGetProto(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	b.count(L)

	L.Push(b.ToLua(o.GetPrototypeOf()))
	return 1
}

func (b *Bridge) luaSetProto(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	var proto object.Object
	if L.Get(2) != lua.LNil {
		proto = b.CheckObject(L, 2)
	}
	b.count(L)

	L.Push(lua.LBool(object.SetPrototype(o, proto)))
	return 1
}

func (b *Bridge) luaCopy(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	b.count(L)

	cp, err := object.ShallowCopy(o)
	if err != nil {
		L.RaiseError("copying %s: %s", object.Describe(o), err.Error())
	}
	L.Push(b.ToLua(cp))
	return 1
}

func (b *Bridge) luaFreeze(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	b.count(L)

	L.Push(lua.LBool(object.Freeze(o)))
	return 1
}

func (b *Bridge) luaPush(L *lua.LState) int {
	o := b.CheckObject(L, 1)
	b.count(L)

	values := make([]object.Value, 0, L.GetTop()-1)
	for i := 2; i <= L.GetTop(); i++ {
		values = append(values, b.ToValue(L.Get(i)))
	}

	ok, err := object.Push(o, values...)
	if err != nil {
		L.RaiseError("push: %s", err.Error())
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (b *Bridge) luaJSON(L *lua.LState) int {
	v := b.ToValue(L.Get(1))
	b.count(L)

	out, err := object.MarshalJSON(v)
	if err != nil {
		L.RaiseError("json: %s", err.Error())
	}
	L.Push(lua.LString(out))
	return 1
}
