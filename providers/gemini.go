package providers

import (
	"context"
	"strings"

	"github.com/ghiac/chatforge/apperr"
	"google.golang.org/genai"
)

// GeminiClient wraps google.golang.org/genai. The router concatenates the
// conversation into a single user turn, matching the original's
// "\n".join(contents) behavior rather than threading per-turn roles.
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperr.WrapConfig(err, "create gemini client")
	}
	return &GeminiClient{client: client}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, model string, messages []Message, temperature float32, _ GenerateOpts) (*Result, error) {
	var parts []string
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	joined := strings.Join(parts, "\n")

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(joined), config)
	if err != nil {
		return nil, apperr.WrapProviderError(err, "gemini generate content for model %s", model)
	}

	var promptTokens, completionTokens, totalTokens int
	if resp.UsageMetadata != nil {
		promptTokens = int(resp.UsageMetadata.PromptTokenCount)
		completionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		totalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &Result{
		Content:          resp.Text(),
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      totalTokens,
	}, nil
}

// CountTokens calls Gemini's token-counting endpoint for messages joined the
// same way Generate joins them into a single turn.
func (c *GeminiClient) CountTokens(ctx context.Context, model string, messages []Message) (int, error) {
	var parts []string
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	joined := strings.Join(parts, "\n")

	resp, err := c.client.Models.CountTokens(ctx, model, genai.Text(joined), nil)
	if err != nil {
		return 0, apperr.WrapProviderError(err, "gemini count tokens for model %s", model)
	}
	return int(resp.TotalTokens), nil
}
