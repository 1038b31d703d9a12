package tool

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Common errors for tool operations.
var (
	ErrNotFound = errors.New("tool not found")
	ErrExists   = errors.New("tool already registered")
)

// HandlerFunc is the function signature for tool handlers. Arguments
// arrive positionally, in call order from the session runtime.
type HandlerFunc func(ctx context.Context, args []any) (any, error)

// Definition describes a callable tool. The descriptor fields mirror
// mcp.Tool so registries can be exported to model-facing catalogs
// unchanged.
type Definition struct {
	Name         string
	Title        string
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
	Annotations  *mcp.ToolAnnotations
	Handler      HandlerFunc
}

// Descriptor returns the mcp.Tool view of the definition.
func (d Definition) Descriptor() mcp.Tool {
	return mcp.Tool{
		Name:         d.Name,
		Title:        d.Title,
		Description:  d.Description,
		InputSchema:  d.InputSchema,
		OutputSchema: d.OutputSchema,
		Annotations:  d.Annotations,
	}
}

// Provider defines a source of callable tools.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Call must honor cancellation/deadlines.
// - Errors: Call with an unknown name returns ErrNotFound; handler
//   failures are returned as-is.
type Provider interface {
	// Tools returns descriptors for all available tools, sorted by name.
	Tools(ctx context.Context) ([]mcp.Tool, error)

	// Call invokes the named tool with positional arguments.
	Call(ctx context.Context, name string, args []any) (any, error)
}
