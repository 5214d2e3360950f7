// Package providers wraps each upstream LLM SDK (OpenAI, Anthropic, Gemini,
// Cerebras) behind a single narrow signature so the router only needs to
// pick a client and call Generate.
package providers

import "context"

// Message is one chat turn, provider-agnostic.
type Message struct {
	Role    string
	Content string
}

// GenerateOpts carries the per-call knobs the router passes through.
type GenerateOpts struct {
	MaxTokens        int
	ReasoningEffort  string
	ExtendedThinking bool
	ThinkingBudget   int
}

// Result is a completed chat turn plus whichever usage fields the provider
// reported. Thinking is populated only by providers that support extended
// thinking (currently Anthropic) and only when GenerateOpts.ExtendedThinking
// was set.
type Result struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Thinking         string
}

// Client is implemented by each provider's thin SDK wrapper.
type Client interface {
	Generate(ctx context.Context, model string, messages []Message, temperature float32, opts GenerateOpts) (*Result, error)
}
