package driver

// Environment variables the stock driver binary reads at startup. The
// controller injects them into the runtime through the provisioning
// spec; embedders running the loop in-process configure the same
// settings directly instead.
const (
	// EnvBudgetMax sets the session's sub-query call budget.
	EnvBudgetMax = "SESSION_BUDGET_MAX"

	// EnvSummarizeOver sets the captured-output size threshold, in
	// characters, beyond which output is condensed.
	EnvSummarizeOver = "SESSION_SUMMARIZE_OVER"

	// EnvModel overrides the completion provider's default model.
	EnvModel = "SESSION_MODEL"

	// EnvAnthropicKey selects the Anthropic completion provider.
	EnvAnthropicKey = "ANTHROPIC_API_KEY"

	// EnvOpenAIKey selects the OpenAI completion provider when no
	// Anthropic key is present.
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// DefaultBudgetMax is the sub-query allowance applied when EnvBudgetMax
// is unset.
const DefaultBudgetMax = 10
