package providers

// NewCerebrasClient builds a Cerebras client. Cerebras speaks the OpenAI
// chat-completions wire format and has no dedicated Go SDK in this stack, so
// it reuses OpenAIClient pointed at Cerebras's base URL (see DESIGN.md).
func NewCerebrasClient(apiKey string) *OpenAIClient {
	return NewOpenAICompatibleClient(apiKey, "https://api.cerebras.ai/v1")
}
