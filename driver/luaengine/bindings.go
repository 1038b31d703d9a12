package luaengine

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/jonwraymond/codesession/helper"
)

// install wires the session globals into the interpreter: output
// capture, the helper library, governed model calls, and submit.
func (e *Engine) install() {
	L := e.state

	L.SetGlobal("print", L.NewFunction(e.luaPrint))
	if ioMod, ok := L.GetGlobal("io").(*lua.LTable); ok {
		// Fragment output must never reach the process stdout, which
		// carries the wire protocol.
		L.SetField(ioMod, "write", L.NewFunction(e.luaWrite))
	}

	L.SetGlobal("peek", L.NewFunction(e.luaPeek))
	L.SetGlobal("grep", L.NewFunction(e.luaGrep))
	L.SetGlobal("chunk_by_size", L.NewFunction(e.luaChunkBySize))
	L.SetGlobal("chunk_by_headers", L.NewFunction(e.luaChunkByHeaders))
	L.SetGlobal("add_buffer", L.NewFunction(e.luaAddBuffer))
	L.SetGlobal("get_buffer", L.NewFunction(e.luaGetBuffer))
	L.SetGlobal("clear_buffer", L.NewFunction(e.luaClearBuffer))
	L.SetGlobal("llm", L.NewFunction(e.luaLLM))
	L.SetGlobal("llm_batch", L.NewFunction(e.luaLLMBatch))
	L.SetGlobal("submit", L.NewFunction(e.luaSubmit))
}

func (e *Engine) luaPrint(L *lua.LState) int {
	top := L.GetTop()
	for i := 1; i <= top; i++ {
		if i > 1 {
			e.stdout.WriteByte('\t')
		}
		e.stdout.WriteString(L.ToStringMeta(L.Get(i)).String())
	}
	e.stdout.WriteByte('\n')
	return 0
}

func (e *Engine) luaWrite(L *lua.LState) int {
	top := L.GetTop()
	for i := 1; i <= top; i++ {
		e.stdout.WriteString(L.ToStringMeta(L.Get(i)).String())
	}
	return 0
}

func (e *Engine) luaPeek(L *lua.LState) int {
	text := L.CheckString(1)
	offset := L.CheckInt(2)
	length := L.CheckInt(3)
	L.Push(lua.LString(helper.Peek(text, offset, length)))
	return 1
}

func (e *Engine) luaGrep(L *lua.LState) int {
	text := L.CheckString(1)
	pattern := L.CheckString(2)
	opts := helper.GrepOptions{Context: L.OptInt(3, 0)}
	if L.GetTop() >= 4 {
		opts.CaseSensitive = !lua.LVIsFalse(L.Get(4))
	}
	L.Push(stringsToTable(L, helper.Grep(text, pattern, opts)))
	return 1
}

func (e *Engine) luaChunkBySize(L *lua.LState) int {
	text := L.CheckString(1)
	size := L.CheckInt(2)
	overlap := L.OptInt(3, 0)
	chunks, err := helper.ChunkBySize(text, size, overlap)
	if err != nil {
		L.RaiseError("chunk_by_size: %s", err.Error())
		return 0
	}
	L.Push(stringsToTable(L, chunks))
	return 1
}

func (e *Engine) luaChunkByHeaders(L *lua.LState) int {
	text := L.CheckString(1)
	pattern := L.CheckString(2)
	chunks, err := helper.ChunkByHeaders(text, pattern)
	if err != nil {
		L.RaiseError("chunk_by_headers: %s", err.Error())
		return 0
	}
	L.Push(stringsToTable(L, chunks))
	return 1
}

func (e *Engine) luaAddBuffer(L *lua.LState) int {
	name := L.CheckString(1)
	e.buffers.Add(name, fromLua(L.CheckAny(2)))
	return 0
}

func (e *Engine) luaGetBuffer(L *lua.LState) int {
	values := e.buffers.Get(L.CheckString(1))
	tbl := L.CreateTable(len(values), 0)
	for _, v := range values {
		tbl.Append(toLua(L, v))
	}
	L.Push(tbl)
	return 1
}

func (e *Engine) luaClearBuffer(L *lua.LState) int {
	e.buffers.Clear(L.OptString(1, ""))
	return 0
}

func (e *Engine) luaLLM(L *lua.LState) int {
	if e.governor == nil {
		L.RaiseError("llm: no completion provider configured")
		return 0
	}
	prompt := L.CheckString(1)
	text, err := e.governor.SubQuery(e.ctx(L), prompt)
	if err != nil {
		L.RaiseError("llm: %s", err.Error())
		return 0
	}
	L.Push(lua.LString(text))
	return 1
}

func (e *Engine) luaLLMBatch(L *lua.LState) int {
	if e.governor == nil {
		L.RaiseError("llm_batch: no completion provider configured")
		return 0
	}
	tbl := L.CheckTable(1)
	prompts := make([]string, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		prompts = append(prompts, lua.LVAsString(tbl.RawGetInt(i)))
	}
	results, err := e.governor.BatchSubQuery(e.ctx(L), prompts)
	if err != nil {
		L.RaiseError("llm_batch: %s", err.Error())
		return 0
	}
	L.Push(stringsToTable(L, results))
	return 1
}

// luaSubmit records the fragment's outputs. A single table argument
// whose keys are all strings is treated as a name/value mapping;
// anything else is positional, matched in order against the Command's
// output names. The most recent call wins.
func (e *Engine) luaSubmit(L *lua.LState) int {
	top := L.GetTop()
	if top == 1 {
		if tbl, ok := L.Get(1).(*lua.LTable); ok && isNamedTable(tbl) {
			values := make(map[string]any)
			tbl.ForEach(func(k, v lua.LValue) {
				values[k.String()] = fromLua(v)
			})
			e.sub.set = true
			e.sub.values = values
			return 0
		}
	}
	if top > len(e.outputs) {
		L.RaiseError("submit: %d values for %d output names", top, len(e.outputs))
		return 0
	}
	values := make(map[string]any, top)
	for i := 1; i <= top; i++ {
		values[e.outputs[i-1]] = fromLua(L.Get(i))
	}
	e.sub.set = true
	e.sub.values = values
	return 0
}

func (e *Engine) ctx(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isNamedTable reports whether every key of the table is a string. An
// empty table is not named; it submits as a positional empty sequence.
func isNamedTable(tbl *lua.LTable) bool {
	named := true
	any := false
	tbl.ForEach(func(k, _ lua.LValue) {
		any = true
		if k.Type() != lua.LTString {
			named = false
		}
	})
	return any && named
}

func stringsToTable(L *lua.LState, values []string) *lua.LTable {
	tbl := L.CreateTable(len(values), 0)
	for _, v := range values {
		tbl.Append(lua.LString(v))
	}
	return tbl
}
