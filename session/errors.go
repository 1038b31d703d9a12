package session

import (
	"errors"
	"strings"
)

// Sentinel errors for error classification.
var (
	// ErrConfiguration indicates an invalid or incomplete configuration.
	ErrConfiguration = errors.New("invalid session configuration")

	// ErrLifecycle indicates an operation attempted before Start or after
	// Shutdown, or a provisioning failure.
	ErrLifecycle = errors.New("session lifecycle error")

	// ErrProtocol indicates a malformed or out-of-order wire message, or a
	// stream failure mid-exchange.
	ErrProtocol = errors.New("session protocol error")

	// ErrExecution indicates a fragment that raised; the captured error
	// text rides on the ExecutionError.
	ErrExecution = errors.New("fragment execution failed")

	// ErrTool indicates a brokered tool call that failed or received no
	// reply.
	ErrTool = errors.New("tool call failed")

	// ErrVolume indicates a missing durable-volume binding or a storage
	// read/write failure.
	ErrVolume = errors.New("durable volume error")
)

// ExecutionError reports a Command whose fragment raised. The final
// value is null in that case; the interpreter's error text is captured
// here instead.
type ExecutionError struct {
	// Stderr is the captured error text, including a stack trace when
	// the interpreter provides one.
	Stderr string
}

// Error returns the first line of the captured error text.
func (e *ExecutionError) Error() string {
	line := e.Stderr
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if line == "" {
		return "fragment execution failed"
	}
	return "fragment execution failed: " + line
}

// Is reports whether this error matches the target.
// ExecutionError matches ErrExecution to allow sentinel-style checking.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}
