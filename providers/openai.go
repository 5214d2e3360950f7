package providers

import (
	"context"

	"github.com/ghiac/chatforge/apperr"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient wraps go-openai for both the native OpenAI API and any
// OpenAI-compatible endpoint reached through a custom BaseURL (Cerebras).
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient builds a client against the default OpenAI API.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{client: openai.NewClient(apiKey)}
}

// NewOpenAICompatibleClient builds a client against a custom BaseURL, the
// pattern Cerebras reuses since it speaks the OpenAI chat-completions wire
// format but has no dedicated Go SDK in this stack.
func NewOpenAICompatibleClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAIClient) Generate(ctx context.Context, model string, messages []Message, temperature float32, opts GenerateOpts) (*Result, error) {
	reqMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    reqMessages,
		Temperature: temperature,
	}

	// o3-mini takes max_completion_tokens and a reasoning effort instead of
	// max_tokens/temperature.
	if model == "o3-mini" {
		req.MaxCompletionTokens = maxTokens
		req.Temperature = 0 // zero is omitted from the request
		if opts.ReasoningEffort != "" {
			req.ReasoningEffort = opts.ReasoningEffort
		}
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, apperr.WrapProviderError(err, "openai chat completion for model %s", model)
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.ProviderError("openai returned no choices for model %s", model)
	}

	return &Result{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}
