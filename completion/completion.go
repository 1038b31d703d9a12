// Package completion defines the LLM-completion capability the quota
// governor consumes. The core never depends on a concrete provider; thin
// adapters live in the subpackages (anthropic, openai) and anything
// satisfying Client can be plugged in.
package completion

import "context"

// Request is one completion request.
type Request struct {
	// Prompt is the user prompt text. Required.
	Prompt string

	// Model optionally overrides the adapter's default model identifier.
	Model string

	// MaxTokens optionally caps the completion length. Zero applies the
	// adapter default.
	MaxTokens int
}

// Response is the completion result.
type Response struct {
	// Text is the concatenated text content of the completion.
	Text string
}

// Client issues completion requests.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use; the
//   governor fans batches out across goroutines.
// - Context: Complete must honor cancellation and deadlines.
// - Errors: transport and provider failures propagate; the caller meters
//   budget per attempt, so implementations must not retry internally.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
