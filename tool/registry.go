package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Registry is an in-process Provider over registered Definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

var _ Provider = (*Registry)(nil)

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a tool definition to the registry.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %q: handler is required", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrExists, def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// RegisterFunc registers a bare handler under name.
func (r *Registry) RegisterFunc(name string, fn HandlerFunc) error {
	return r.Register(Definition{Name: name, Handler: fn})
}

// Unregister removes a tool from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.defs, name)
}

// Names returns registered tool names sorted for deterministic output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs))
	for name := range r.defs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Tools returns descriptors for all registered tools, sorted by name.
func (r *Registry) Tools(_ context.Context) ([]mcp.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Tool, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Call invokes the named tool handler.
func (r *Registry) Call(ctx context.Context, name string, args []any) (any, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()

	if !ok || def.Handler == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return def.Handler(ctx, args)
}
