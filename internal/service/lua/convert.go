package lua

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/sapphire/internal/model"
)

// valueTable exposes a value snapshot to a script.
func valueTable(L *lua.LState, v model.Value) *lua.LTable {
	tb := L.NewTable()
	tb.RawSetString("text", lua.LString(v.Text()))
	tb.RawSetString("present", lua.LBool(v.Present()))
	tb.RawSetString("default", lua.LBool(v.Default()))
	tb.RawSetString("malformed", lua.LBool(v.Malformed()))
	tb.RawSetString("empty", lua.LBool(v.Empty()))
	if p := v.Property(); p != nil {
		tb.RawSetString("property", lua.LString(p.Name()))
		tb.RawSetString("label", lua.LString(p.Label()))
	}
	if e := v.Element(); e != nil {
		tb.RawSetString("element", elementTable(L, e))
	}
	return tb
}

// elementTable exposes an element to a script. get reads persisted text
// only, so a script never triggers default value providers.
func elementTable(L *lua.LState, e *model.Element) *lua.LTable {
	tb := L.NewTable()
	tb.RawSetString("type", lua.LString(e.Type().Name()))
	tb.RawSetString("get", L.NewFunction(func(L *lua.LState) int {
		text, ok := persisted(e, L.CheckString(1))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(text))
		return 1
	}))
	tb.RawSetString("has", L.NewFunction(func(L *lua.LState) int {
		_, ok := persisted(e, L.CheckString(1))
		L.Push(lua.LBool(ok))
		return 1
	}))
	return tb
}

func persisted(e *model.Element, name string) (string, bool) {
	def, ok := e.Type().Property(name)
	if !ok {
		return "", false
	}
	p, ok := def.(*model.ValueProperty)
	if !ok {
		return "", false
	}
	f, err := e.Field(p)
	if err != nil {
		return "", false
	}
	text, present, err := f.Persisted()
	if err != nil || !present {
		return "", false
	}
	return text, true
}
