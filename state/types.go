package state

import "time"

// Metadata carries the descriptive fields of a saved script.
type Metadata struct {
	Author      string
	Description string
}

// ScriptRecord is one named script in durable storage, together with
// its execution state and bounded version history.
type ScriptRecord struct {
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Timestamp   time.Time `json:"timestamp"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`

	// Version starts at 1 and increments on every re-save of the name.
	Version int `json:"version"`

	// ExecutionCount is the number of times this version has run.
	ExecutionCount int `json:"execution_count"`

	// LastResult is the outcome of the most recent run, nil before the
	// first one.
	LastResult *ScriptResult `json:"last_result,omitempty"`

	// PreviousVersions holds prior snapshots, oldest first, bounded by
	// the manager's version cap.
	PreviousVersions []ScriptRecord `json:"previous_versions,omitempty"`
}

// snapshot returns a copy suitable for the version history. The copy
// drops its own PreviousVersions so histories do not nest.
func (r *ScriptRecord) snapshot() ScriptRecord {
	s := *r
	s.PreviousVersions = nil
	return s
}

// ScriptResult is the recorded outcome of one script run.
type ScriptResult struct {
	Values     map[string]any `json:"values,omitempty"`
	Stdout     string         `json:"stdout,omitempty"`
	Stderr     string         `json:"stderr,omitempty"`
	Success    bool           `json:"success"`
	DurationMs int64          `json:"duration_ms,omitempty"`
}

// ExecutionRecord is one entry of the bounded execution history.
type ExecutionRecord struct {
	Timestamp time.Time     `json:"timestamp"`
	Task      string        `json:"task"`
	Code      string        `json:"code,omitempty"`
	Result    string        `json:"result,omitempty"`
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration_ns,omitempty"`
}
