// Package driver implements the in-runtime half of the session
// protocol: a loop that reads Commands from a byte stream, executes
// their program fragments against a persistent namespace, brokers tool
// calls back to the host, and writes exactly one terminal Response per
// Command.
//
// # Architecture
//
// The package defines two main pieces:
//
//   - [Engine]: the pluggable fragment interpreter. It owns the
//     namespace, which survives across fragments until the engine is
//     closed. luaengine provides the standard implementation.
//
//   - [Driver]: the loop. It decodes Commands, times execution, applies
//     output condensation through the quota governor, and encodes the
//     terminal Response.
//
// # Completion Signals
//
// A fragment reports its outputs by calling submit with positional
// values (matched in order against the Command's output names) or with
// a single table of name/value pairs. Assigning the reserved global
// `final` is a shorthand for submitting one value. `final` is cleared
// before every fragment; an uncaught error always produces a failed
// Response even when `final` was assigned first.
//
// # Tool Brokering
//
// When a fragment calls a name listed in the Command's tool names, the
// engine suspends the fragment, the driver emits a tool_call Response
// and blocks for exactly one reply line, and the reply value is
// returned at the call site. Calls alternate strictly with replies;
// there is no pipelining.
package driver
