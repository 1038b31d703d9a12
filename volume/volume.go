// Package volume defines the durable keyed-storage capability backing
// session workspaces. A Store holds opaque byte objects under slash-
// separated keys; a Binding couples a Store with the local staging
// directory mounted into the isolated runtime and provides the explicit
// durability (Push) and visibility (Pull) barriers. Consistency across
// sessions is explicit, never automatic: nothing is durable until pushed
// and nothing remote is visible until pulled.
package volume

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no object.
var ErrNotFound = errors.New("object not found")

// Store is a durable keyed object store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods must honor cancellation/deadlines.
// - Errors: Get on a missing key returns ErrNotFound; Put overwrites
//   unconditionally; Delete of a missing key is not an error.
// - Ownership: stored and returned byte slices are caller-owned copies.
type Store interface {
	// Put writes the object under key, replacing any previous object.
	Put(ctx context.Context, key string, data []byte) error

	// Get reads the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the keys beginning with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object under key if present.
	Delete(ctx context.Context, key string) error
}
