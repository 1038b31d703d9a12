package state

import "errors"

// Sentinel errors for state operations. Storage failures wrap
// session.ErrVolume; lifecycle and protocol conditions from the
// underlying session pass through unchanged.
var (
	// ErrScriptNotFound is returned when the named script does not
	// exist in durable storage.
	ErrScriptNotFound = errors.New("script not found")

	// ErrMemoryLimit is returned when an append would push a memory
	// block past its character limit. The block is left unchanged.
	ErrMemoryLimit = errors.New("memory block limit exceeded")
)
