package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Mux combines tools from multiple providers behind one flat namespace.
// Calls are routed to providers in registration order; the first
// provider that recognizes the name serves it.
type Mux struct {
	mu        sync.RWMutex
	providers []Provider
}

var _ Provider = (*Mux)(nil)

// NewMux creates a mux over the given providers.
func NewMux(providers ...Provider) *Mux {
	m := &Mux{}
	for _, p := range providers {
		m.Add(p)
	}
	return m
}

// Add appends a provider to the routing order.
func (m *Mux) Add(p Provider) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = append(m.providers, p)
}

// Tools returns descriptors from all providers, sorted by name. When
// providers expose the same name, the earlier provider's descriptor
// wins, matching Call routing.
func (m *Mux) Tools(ctx context.Context) ([]mcp.Tool, error) {
	m.mu.RLock()
	providers := make([]Provider, len(m.providers))
	copy(providers, m.providers)
	m.mu.RUnlock()

	seen := make(map[string]struct{})
	all := make([]mcp.Tool, 0)
	for _, p := range providers {
		tools, err := p.Tools(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tools {
			if _, dup := seen[t.Name]; dup {
				continue
			}
			seen[t.Name] = struct{}{}
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

// Call routes the invocation to the first provider that recognizes the
// name.
func (m *Mux) Call(ctx context.Context, name string, args []any) (any, error) {
	m.mu.RLock()
	providers := make([]Provider, len(m.providers))
	copy(providers, m.providers)
	m.mu.RUnlock()

	for _, p := range providers {
		result, err := p.Call(ctx, name, args)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return result, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}
