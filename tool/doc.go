// Package tool provides the callable-tool abstractions exposed to
// session code.
//
// A Provider is a source of named tools; the session controller selects
// a subset of provider names per execution and brokers calls from the
// runtime back to the provider. Two implementations ship with the
// package tree:
//
//   - Registry: in-process Go handlers registered directly
//   - mcptool.Provider: tools served by a Model Context Protocol session
//
// # Registry
//
// The Registry maps names to handler functions:
//
//	reg := tool.NewRegistry()
//	reg.Register(tool.Definition{
//	    Name:        "add",
//	    Description: "Adds two numbers",
//	    Handler: func(ctx context.Context, args []any) (any, error) {
//	        return args[0].(float64) + args[1].(float64), nil
//	    },
//	})
//
// # Mux
//
// A Mux composes several providers behind one flat namespace:
//
//	mux := tool.NewMux(reg, mcpProvider)
//	result, _ := mux.Call(ctx, "add", []any{2, 3})
package tool
