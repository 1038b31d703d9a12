package session

// Logger is an optional interface for controller observability.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use; the
//   watchdogs and the stderr drain log from their own goroutines.
// - Errors: logging must be best-effort; Logf should not panic.
type Logger interface {
	Logf(format string, args ...any)
}
