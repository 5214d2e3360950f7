package providers

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ghiac/chatforge/apperr"
)

// AnthropicClient wraps anthropic-sdk-go.
type AnthropicClient struct {
	client *anthropic.Client
}

func NewAnthropicClient(apiKey string) *AnthropicClient {
	client := anthropic.NewClient(option.WithAuthToken(apiKey))
	return &AnthropicClient{client: &client}
}

// maxTokensForModel mirrors the original router's per-model tiering: the
// 3.7 Sonnet family gets the largest budget, the 4-generation Opus/Sonnet
// models get a mid tier, everything else falls back to 4096.
func maxTokensForModel(model string) int64 {
	switch model {
	case "claude-3-7-sonnet-20250219":
		return 64000
	case "claude-opus-4-20250514", "claude-sonnet-4-20250514":
		return 32000
	default:
		return 4096
	}
}

func (c *AnthropicClient) Generate(ctx context.Context, model string, messages []Message, temperature float32, opts GenerateOpts) (*Result, error) {
	var system string
	var anthropicMessages []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "user", "assistant":
			block := anthropic.NewTextBlock(m.Content)
			if m.Role == "user" {
				anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(block))
			} else {
				anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(block))
			}
		}
	}

	// The original merges the system prompt into the first user turn rather
	// than always using the System field, and guarantees the conversation
	// opens on a user turn.
	if system != "" && len(anthropicMessages) > 0 {
		if tb := anthropicMessages[0].Content[0].OfText; tb != nil {
			tb.Text = system + "\n\nUser: " + tb.Text
		}
	}
	if len(anthropicMessages) == 0 || anthropicMessages[0].Role != anthropic.MessageParamRoleUser {
		anthropicMessages = append([]anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(""))}, anthropicMessages...)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		Messages:    anthropicMessages,
		MaxTokens:   maxTokensForModel(model),
		Temperature: anthropic.Float(float64(temperature)),
	}

	// Extended thinking asks the model to emit a reasoning trace ahead of
	// its answer, bounded by a token budget; the API requires temperature
	// be left at its default (1.0) whenever thinking is enabled.
	if opts.ExtendedThinking {
		budget := int64(opts.ThinkingBudget)
		if budget <= 0 {
			budget = 1024
		}
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
		params.Temperature = anthropic.Float(1.0)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, apperr.WrapProviderError(err, "anthropic message create for model %s", model)
	}

	if resp.StopReason == "refusal" {
		return &Result{
			Content: "The model refused to answer this request for safety reasons.",
			Model:   model,
		}, nil
	}

	var content, thinking string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content += block.AsText().Text
		case "thinking":
			thinking += block.AsThinking().Thinking
		}
	}

	return &Result{
		Content:          content,
		Model:            model,
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		Thinking:         thinking,
	}, nil
}
