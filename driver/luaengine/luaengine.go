// Package luaengine implements driver.Engine with an embedded Lua
// interpreter. One Engine owns one interpreter state: globals bound by
// a fragment stay bound for every later fragment, which is what makes
// the session namespace persistent. Helper functions (peek, grep,
// chunk_by_size, chunk_by_headers, buffer operations), governed model
// calls (llm, llm_batch), and the submit completion signal are
// installed as globals at construction.
package luaengine

import (
	"context"
	"errors"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/jonwraymond/codesession/driver"
	"github.com/jonwraymond/codesession/helper"
	"github.com/jonwraymond/codesession/quota"
)

// finalGlobal is the reserved name a fragment may assign instead of
// calling submit. It is cleared before every fragment.
const finalGlobal = "final"

// Options configures an Engine.
type Options struct {
	// Buffers backs the buffer helpers. A fresh set is created when nil.
	Buffers *helper.Buffers

	// Governor meters the llm and llm_batch globals. If nil, calling
	// either raises an in-language error.
	Governor *quota.Governor
}

// Engine executes fragments on a persistent Lua state. Not safe for
// concurrent use; the driver loop serializes executions.
type Engine struct {
	state    *lua.LState
	buffers  *helper.Buffers
	governor *quota.Governor

	stdout  strings.Builder
	outputs []string
	call    driver.CallFunc
	sub     *submission
}

// submission records the most recent submit call of the current
// fragment. Later calls overwrite earlier ones.
type submission struct {
	set    bool
	values map[string]any
}

var _ driver.Engine = (*Engine)(nil)

// New creates an Engine with the full standard library open and the
// session globals installed.
func New(opts Options) (*Engine, error) {
	buffers := opts.Buffers
	if buffers == nil {
		buffers = helper.NewBuffers()
	}

	e := &Engine{
		state:    lua.NewState(),
		buffers:  buffers,
		governor: opts.Governor,
	}
	e.install()
	return e, nil
}

// Buffers returns the buffer set backing the buffer helpers.
func (e *Engine) Buffers() *helper.Buffers { return e.buffers }

// Execute implements driver.Engine.
func (e *Engine) Execute(ctx context.Context, frag driver.Fragment, call driver.CallFunc) (driver.Outcome, error) {
	if e.state == nil {
		return driver.Outcome{}, errors.New("luaengine: engine is closed")
	}
	L := e.state

	e.stdout.Reset()
	e.outputs = frag.OutputNames
	e.call = call
	e.sub = &submission{}

	// The reserved completion global never leaks across fragments.
	L.SetGlobal(finalGlobal, lua.LNil)

	for name, value := range frag.Variables {
		L.SetGlobal(name, toLua(L, value))
	}

	restore := e.bindTools(frag.ToolNames)
	defer restore()

	L.SetContext(ctx)
	defer L.RemoveContext()

	fn, err := L.LoadString(frag.Code)
	if err != nil {
		return driver.Outcome{Stdout: e.stdout.String(), Stderr: failureText(err)}, nil
	}
	L.Push(fn)
	err = L.PCall(0, lua.MultRet, nil)
	L.SetTop(0)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return driver.Outcome{}, ctxErr
		}
		// An error always wins over an earlier submit or final
		// assignment in the same fragment.
		return driver.Outcome{Stdout: e.stdout.String(), Stderr: failureText(err)}, nil
	}

	return driver.Outcome{Values: e.collectValues(), Stdout: e.stdout.String()}, nil
}

// Close releases the interpreter and discards the namespace.
func (e *Engine) Close() error {
	if e.state != nil {
		e.state.Close()
		e.state = nil
	}
	return nil
}

// collectValues resolves the completion signal: an explicit submit
// wins, otherwise a non-nil `final` global becomes the sole output,
// keyed by the first output name when one was declared.
func (e *Engine) collectValues() map[string]any {
	if e.sub.set {
		return e.sub.values
	}
	if fv := e.state.GetGlobal(finalGlobal); fv != lua.LNil {
		key := finalGlobal
		if len(e.outputs) > 0 {
			key = e.outputs[0]
		}
		return map[string]any{key: fromLua(fv)}
	}
	return map[string]any{}
}

// bindTools installs brokered-call globals for the fragment and returns
// a function restoring whatever the names were bound to before.
func (e *Engine) bindTools(names []string) func() {
	L := e.state
	type binding struct {
		name string
		prev lua.LValue
	}
	bound := make([]binding, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		bound = append(bound, binding{name: name, prev: L.GetGlobal(name)})
		L.SetGlobal(name, L.NewFunction(e.toolBinding(name)))
	}
	return func() {
		for _, b := range bound {
			L.SetGlobal(b.name, b.prev)
		}
		e.call = nil
	}
}

func (e *Engine) toolBinding(name string) lua.LGFunction {
	return func(L *lua.LState) int {
		if e.call == nil {
			L.RaiseError("tool %s: no broker available", name)
			return 0
		}
		top := L.GetTop()
		args := make([]any, 0, top)
		for i := 1; i <= top; i++ {
			args = append(args, fromLua(L.Get(i)))
		}
		result, err := e.call(name, args)
		if err != nil {
			L.RaiseError("tool %s: %s", name, err.Error())
			return 0
		}
		L.Push(toLua(L, result))
		return 1
	}
}

// failureText renders a compile or runtime error the way the fragment's
// author would see it on an interpreter's stderr.
func failureText(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		msg := apiErr.Object.String()
		if apiErr.StackTrace != "" {
			msg += "\n" + apiErr.StackTrace
		}
		return "error: " + msg
	}
	return "error: " + err.Error()
}
