package llmrouter

import (
	"testing"

	"github.com/ghiac/chatforge/providers"
)

func TestCountTokens_OpenAI(t *testing.T) {
	messages := []providers.Message{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: "Hello there"},
	}
	n := CountTokens("gpt-4o", messages)
	if n <= 0 {
		t.Fatalf("expected positive token count, got %d", n)
	}
}

func TestCountTokens_ClaudeAddsRolePreamble(t *testing.T) {
	withSystem := []providers.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	}
	withoutSystem := []providers.Message{
		{Role: "user", Content: "hi"},
	}
	withCount := CountTokens("claude-3-7-sonnet-20250219", withSystem)
	withoutCount := CountTokens("claude-3-7-sonnet-20250219", withoutSystem)
	if withCount <= withoutCount {
		t.Fatalf("expected system-prefixed conversation to cost more tokens: with=%d without=%d", withCount, withoutCount)
	}
}

func TestCountTokens_GeminiHeuristic(t *testing.T) {
	messages := []providers.Message{{Role: "user", Content: "a reasonably long message to approximate"}}
	n := CountTokens("gemini-2.0-pro-exp-02-05", messages)
	if n <= 0 {
		t.Fatalf("expected positive approximate token count, got %d", n)
	}
}

func TestCountTokens_CerebrasPrefixes(t *testing.T) {
	messages := []providers.Message{{Role: "user", Content: "ping"}}
	for _, model := range []string{"llama3.1-8b", "llama-3.3-70b", "deepSeek-r1-distill-llama-70B"} {
		if n := CountTokens(model, messages); n <= 0 {
			t.Fatalf("model %s: expected positive token count, got %d", model, n)
		}
	}
}

func TestCountTokens_UnknownModelFallsBackToWordCount(t *testing.T) {
	messages := []providers.Message{{Role: "user", Content: "one two three four"}}
	if n := CountTokens("some-unlisted-model", messages); n != 4 {
		t.Fatalf("expected word count fallback of 4, got %d", n)
	}
}
