// Package llmclient is the collaborator interface the context engine
// (topic detection, summarization) and the orchestration graph
// (planning, evaluation, response generation) call out to, narrowed to
// the single-turn, JSON-producing call shape this domain needs.
package llmclient

import "context"

// Client is a single-turn LLM call: a prompt in, text out. Callers that
// expect JSON are responsible for tolerant extraction (see
// internal/context/jsonextract.go) since providers occasionally wrap
// JSON in prose despite instructions.
type Client interface {
	// Complete returns the model's text response to prompt, or an error
	// if the call failed (timeout, auth, rate limit). maxTokens of 0
	// means "use the provider's default".
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)

	// Name identifies the backing provider ("openai", "anthropic", "disabled").
	Name() string
}

// Disabled is a Client that always fails fast, used when no LLM API
// key is configured; callers degrade to their deterministic
// fallbacks.
type Disabled struct{}

func (Disabled) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return "", errDisabled
}

func (Disabled) Name() string { return "disabled" }

var errDisabled = disabledError{}

type disabledError struct{}

func (disabledError) Error() string { return "llmclient: no provider configured" }

// New selects a Client backend by provider name ("openai", "anthropic",
// anything else including "disabled" or empty falls back to Disabled).
// Centralizing the switch here keeps cmd/serve.go's composition root
// from importing both vendor packages directly.
func New(provider, apiKey, baseURL, model string) Client {
	switch provider {
	case "openai":
		return NewOpenAIClient(apiKey, baseURL, model)
	case "anthropic":
		return NewAnthropicClient(apiKey, baseURL, model)
	default:
		return Disabled{}
	}
}
