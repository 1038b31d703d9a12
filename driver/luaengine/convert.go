package luaengine

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// toLua converts a Go value of the wire-format vocabulary (nil, bool,
// number, string, []any, map[string]any) to its Lua representation.
// Values outside that vocabulary are rendered as strings.
func toLua(L *lua.LState, v any) lua.LValue {
	switch t := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(t)
	case string:
		return lua.LString(t)
	case int:
		return lua.LNumber(t)
	case int64:
		return lua.LNumber(t)
	case float32:
		return lua.LNumber(t)
	case float64:
		return lua.LNumber(t)
	case []any:
		tbl := L.CreateTable(len(t), 0)
		for _, item := range t {
			tbl.Append(toLua(L, item))
		}
		return tbl
	case []string:
		tbl := L.CreateTable(len(t), 0)
		for _, item := range t {
			tbl.Append(lua.LString(item))
		}
		return tbl
	case map[string]any:
		tbl := L.CreateTable(0, len(t))
		for k, item := range t {
			tbl.RawSetString(k, toLua(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", t))
	}
}

// fromLua converts a Lua value to the wire-format vocabulary. Tables
// whose entries all live in the array part become []any; any other
// table becomes map[string]any with stringified keys. Functions,
// userdata, and table cycles degrade to their string rendering.
func fromLua(lv lua.LValue) any {
	return fromLuaValue(lv, make(map[*lua.LTable]bool))
}

func fromLuaValue(lv lua.LValue, seen map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if seen[v] {
			return v.String()
		}
		seen[v] = true
		defer delete(seen, v)

		entries := 0
		v.ForEach(func(lua.LValue, lua.LValue) { entries++ })
		if n := v.MaxN(); n == entries {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, fromLuaValue(v.RawGetInt(i), seen))
			}
			return out
		}
		out := make(map[string]any, entries)
		v.ForEach(func(k, item lua.LValue) {
			out[k.String()] = fromLuaValue(item, seen)
		})
		return out
	default:
		return lv.String()
	}
}
