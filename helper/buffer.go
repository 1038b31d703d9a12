package helper

import (
	"sort"
	"sync"
)

// Buffers holds named, ordered value sequences for one session. Appends are
// ordered, lookups on absent names return empty results, and clearing is
// the only way to remove values.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ownership: Get returns a snapshot copy; stored values are not copied.
type Buffers struct {
	mu sync.RWMutex
	m  map[string][]any
}

// NewBuffers creates an empty buffer set.
func NewBuffers() *Buffers {
	return &Buffers{m: make(map[string][]any)}
}

// Add appends value to the named buffer, creating it if needed.
func (b *Buffers) Add(name string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[name] = append(b.m[name], value)
}

// Get returns the accumulated values for name in append order. An absent
// name yields an empty slice, never an error.
func (b *Buffers) Get(name string) []any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	vals := b.m[name]
	out := make([]any, len(vals))
	copy(out, vals)
	return out
}

// Clear removes the named buffer, or every buffer when name is empty.
func (b *Buffers) Clear(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if name == "" {
		b.m = make(map[string][]any)
		return
	}
	delete(b.m, name)
}

// Names returns the existing buffer names in sorted order.
func (b *Buffers) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.m))
	for name := range b.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
