// Package protocol defines the line-delimited wire format spoken between the
// session controller and the driver process. Every message is one JSON object
// on one line: the controller sends Commands and Replies, the driver answers
// with Responses. The exchange is synchronous and single-flight; a Command is
// followed by zero or more tool_call Responses (each answered by exactly one
// Reply) and terminated by exactly one final Response.
package protocol

import "errors"

// ErrMalformed indicates a message that could not be decoded, carried an
// unknown field, or arrived out of protocol order.
var ErrMalformed = errors.New("malformed protocol message")

// Command asks the driver to execute one program fragment against the
// persistent namespace.
type Command struct {
	// Code is the program fragment to execute. May be empty, in which case
	// only the variable merge takes place.
	Code string `json:"code"`

	// Variables are merged into the namespace before execution.
	Variables map[string]any `json:"variables,omitempty"`

	// ToolNames lists the callable names the fragment may invoke as
	// remote tool calls.
	ToolNames []string `json:"tool_names,omitempty"`

	// OutputNames is the ordered list of names positional submissions are
	// mapped onto.
	OutputNames []string `json:"output_names,omitempty"`
}

// Response is the tagged driver-to-controller variant: exactly one of
// ToolCall or Final is set.
type Response struct {
	// ToolCall reports a suspended fragment awaiting a tool result.
	ToolCall *ToolCallPayload `json:"tool_call,omitempty"`

	// Final reports fragment completion, successful or failed.
	Final *FinalPayload `json:"final,omitempty"`
}

// ToolCallPayload carries one brokered tool invocation.
type ToolCallPayload struct {
	Name string `json:"name"`
	Args []any  `json:"args"`
}

// FinalPayload carries the terminal result of one Command.
type FinalPayload struct {
	// Values holds the completion mapping. A null Values together with
	// captured Stderr marks a failed execution; a successful execution
	// always carries a non-null (possibly empty) mapping.
	Values map[string]any `json:"values"`

	// Stdout is the fragment's captured (possibly summarized) output.
	Stdout string `json:"stdout,omitempty"`

	// Stderr is the captured error text of a failed execution.
	Stderr string `json:"stderr,omitempty"`

	// DurationMs is the fragment execution time in milliseconds.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// Reply answers one tool_call Response.
type Reply struct {
	// ToolResult is the value injected at the suspended call site.
	ToolResult any `json:"tool_result"`

	// ToolError, when non-empty, is raised inside the fragment instead.
	ToolError string `json:"tool_error,omitempty"`
}

// ToolCall builds a tool_call Response.
func ToolCall(name string, args []any) Response {
	if args == nil {
		args = []any{}
	}
	return Response{ToolCall: &ToolCallPayload{Name: name, Args: args}}
}

// Final builds a successful final Response. A nil values map is normalized
// to an empty one so it never reads as a failure on the wire.
func Final(values map[string]any, stdout string, durationMs int64) Response {
	if values == nil {
		values = map[string]any{}
	}
	return Response{Final: &FinalPayload{Values: values, Stdout: stdout, DurationMs: durationMs}}
}

// Failure builds a failed final Response: null values plus captured stderr.
func Failure(stderr, stdout string, durationMs int64) Response {
	return Response{Final: &FinalPayload{Stdout: stdout, Stderr: stderr, DurationMs: durationMs}}
}

// IsFinal reports whether the response terminates a Command.
func (r Response) IsFinal() bool {
	return r.Final != nil
}

// IsFailure reports whether the response is a failed final.
func (r Response) IsFailure() bool {
	return r.Final != nil && r.Final.Values == nil
}

// Validate checks that the response carries exactly one variant.
func (r Response) Validate() error {
	if (r.ToolCall == nil) == (r.Final == nil) {
		return ErrMalformed
	}
	return nil
}
