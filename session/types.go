package session

// ToolCallRecord captures one brokered tool invocation made while a
// Command was executing. Records are kept in call order for
// observability and debugging.
type ToolCallRecord struct {
	// Name is the tool name the fragment invoked.
	Name string `json:"name"`

	// Args contains the positional arguments crossing the wire.
	Args []any `json:"args,omitempty"`

	// Result is the value injected back at the call site on success.
	Result any `json:"result,omitempty"`

	// Error contains the handler's error message if the call failed.
	Error string `json:"error,omitempty"`

	// DurationMs is the handler execution time in milliseconds.
	DurationMs int64 `json:"durationMs"`
}

// Result contains the outcome of executing one Command.
type Result struct {
	// Values is the completion mapping. Nil marks a failed execution;
	// a successful execution always carries a non-nil (possibly empty)
	// mapping.
	Values map[string]any `json:"values"`

	// Stdout is the fragment's captured, possibly summarized, output.
	Stdout string `json:"stdout,omitempty"`

	// Stderr is the captured error text of a failed execution.
	Stderr string `json:"stderr,omitempty"`

	// ToolCalls records all brokered tool invocations in call order.
	ToolCalls []ToolCallRecord `json:"toolCalls,omitempty"`

	// DurationMs is the fragment execution time reported by the driver.
	DurationMs int64 `json:"durationMs"`
}

// Failed reports whether the Command's fragment raised.
func (r *Result) Failed() bool {
	return r.Values == nil
}
