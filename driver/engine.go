package driver

import "context"

// Engine is the pluggable fragment interpreter. It owns the session
// namespace: names bound by one fragment remain visible to later
// fragments until Close.
//
// Contract:
// - Concurrency: implementations need not be safe for concurrent use;
//   the Driver serializes all calls.
// - Context: Execute must honor cancellation/deadlines and return
//   ctx.Err() when canceled, leaving the namespace usable.
// - Errors: fragment failures (compile or uncaught runtime errors) are
//   reported in the Outcome with a nil Values map and the error text in
//   Stderr, not as a Go error; the error return is reserved for host
//   faults such as a broken tool-call stream.
// - Ownership: the Fragment is read-only; the returned Outcome is
//   caller-owned.
type Engine interface {
	// Execute merges the fragment's variables into the namespace, runs
	// its code, and returns the outcome. call serves the fragment's
	// tool invocations; it may be nil when no tool names are declared.
	Execute(ctx context.Context, frag Fragment, call CallFunc) (Outcome, error)

	// Close releases the interpreter and discards the namespace.
	Close() error
}
