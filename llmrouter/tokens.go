package llmrouter

import (
	"context"
	"strings"

	"github.com/ghiac/chatforge/providers"
	"github.com/pkoukk/tiktoken-go"
)

// geminiCounter is wired by the process entry point to a live Gemini client's
// token-counting call once credentials are available (SetGeminiCounter);
// left nil it falls back to the heuristic estimate, same as a failed call.
var geminiCounter func(ctx context.Context, model string, messages []providers.Message) (int, error)

// SetGeminiCounter registers the live Gemini token counter. Passing nil
// reverts to heuristic-only estimation.
func SetGeminiCounter(counter func(ctx context.Context, model string, messages []providers.Message) (int, error)) {
	geminiCounter = counter
}

var cerebrasPrefixes = []string{"llama-3.3-70b", "deepSeek-r1-distill-llama-70B"}

// hasCerebrasPrefix reports whether model routes to Cerebras: a broad
// "llama3" wildcard (matching llama3-8b, llama3.1-8b, llama3-70b, ...) plus
// the other Cerebras-hosted model families.
func hasCerebrasPrefix(model string) bool {
	if strings.HasPrefix(model, "llama3") {
		return true
	}
	for _, p := range cerebrasPrefixes {
		if model == p || strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// hasCerebrasCountingPrefix mirrors the original router's narrower
// llama3.1-only rule for token counting: broader llama3 routing variants
// that aren't llama3.1 fall through to the generic word-count estimate.
func hasCerebrasCountingPrefix(model string) bool {
	if strings.HasPrefix(model, "llama3.1") {
		return true
	}
	for _, p := range cerebrasPrefixes {
		if model == p || strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// CountTokens estimates the prompt size for model, following the
// provider-specific counting rules of the original router: a cl100k_base
// tiktoken count for OpenAI/Claude/Cerebras-family models (with small
// per-message framing overheads that mirror each provider's wire format);
// for Gemini, the counter registered with SetGeminiCounter, falling back to
// a heuristic character/word blend; and a plain word count for any other
// model.
func CountTokens(model string, messages []providers.Message) int {
	switch {
	case strings.HasPrefix(model, "gpt-") || model == "o3-mini":
		return countOpenAITokens(messages)
	case strings.HasPrefix(model, "claude-"):
		return countClaudeTokens(messages)
	case strings.HasPrefix(model, "gemini-"):
		return countGeminiTokens(model, messages)
	case hasCerebrasCountingPrefix(model):
		return countCerebrasTokens(messages)
	default:
		n := 0
		for _, m := range messages {
			n += len(strings.Fields(m.Content))
		}
		return n
	}
}

func cl100kEncoding() *tiktoken.Tiktoken {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil
	}
	return enc
}

func countOpenAITokens(messages []providers.Message) int {
	enc := cl100kEncoding()
	if enc == nil {
		return approximateGeminiTokens(messages)
	}
	n := 0
	for _, m := range messages {
		n += len(enc.Encode(m.Content, nil, nil))
		n += 4
	}
	n += 2
	return n
}

func countClaudeTokens(messages []providers.Message) int {
	enc := cl100kEncoding()
	if enc == nil {
		return approximateGeminiTokens(messages)
	}
	n := 0
	for _, m := range messages {
		n += len(enc.Encode(m.Content, nil, nil))
		if m.Role != "" {
			n += len(enc.Encode(m.Role, nil, nil))
		}
		switch m.Role {
		case "user":
			n += len(enc.Encode("Human: ", nil, nil))
		case "assistant":
			n += len(enc.Encode("Assistant: ", nil, nil))
		}
		n += 2
	}
	if len(messages) > 0 && messages[0].Role == "system" {
		n += len(enc.Encode("\n\nHuman: ", nil, nil))
	}
	return n
}

func countCerebrasTokens(messages []providers.Message) int {
	enc := cl100kEncoding()
	if enc == nil {
		return approximateGeminiTokens(messages)
	}
	n := 0
	for _, m := range messages {
		n += len(enc.Encode(m.Content, nil, nil))
		if m.Role != "" {
			n += len(enc.Encode(m.Role, nil, nil))
		}
		n += 4
	}
	return n
}

// countGeminiTokens calls the live Gemini counter when one is registered,
// falling back to the heuristic estimate if none is wired or the call
// errors (matching the original router's try/except around
// model.count_tokens).
func countGeminiTokens(model string, messages []providers.Message) int {
	if geminiCounter != nil {
		if n, err := geminiCounter(context.Background(), model, messages); err == nil {
			return n
		}
	}
	return approximateGeminiTokens(messages)
}

// approximateGeminiTokens blends a char-count and word-count estimate, used
// both for Gemini (no local tokenizer) and as the degraded fallback for the
// other providers when cl100k_base fails to load.
func approximateGeminiTokens(messages []providers.Message) int {
	total := 0.0
	for _, m := range messages {
		chars := float64(len(m.Content))
		words := float64(len(strings.Fields(m.Content)))
		total += (chars/4 + words*1.3) / 2
	}
	return int(total)
}
