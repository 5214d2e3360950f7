package orchestrator

import (
	"context"
	"strings"

	"github.com/ghiac/chatforge/llmrouter"
	"github.com/ghiac/chatforge/providers"
)

const (
	titleModel       = "gpt-4o-mini"
	titleMaxTokens   = 10
	titleTemperature = 0.5
	titleTokenLimit  = 4000
	summaryModel     = "gpt-3.5-turbo"
	summaryMaxTokens = 64
	fallbackTitle    = "Conversation Summary"
)

// generateSummaryTitle produces a short 2-4 word title for a new
// conversation, summarizing the system message and recent turns first if
// either is too long. Grounded on generate_title_utils.py's
// generate_summary_title; falls back to a fixed title on any failure.
func generateSummaryTitle(ctx context.Context, bag *llmrouter.Bag, messages []providers.Message) string {
	systemMessage := extractSystemMessage(messages)
	systemSummary := systemMessage
	if systemMessage != "" && llmrouter.CountTokens(summaryModel, []providers.Message{{Content: systemMessage}}) > titleTokenLimit/4 {
		systemSummary = summarizeText(ctx, bag, systemMessage, "Summarize the following system message for context:")
	}

	recentContext := extractUserAssistantContent(messages, 5)
	if llmrouter.CountTokens(summaryModel, []providers.Message{{Content: recentContext}}) > titleTokenLimit {
		recentContext = summarizeText(ctx, bag, recentContext, "Summarize the following conversation in 1-2 sentences, focusing on the main topic or question.")
	}

	var sb strings.Builder
	if systemSummary != "" {
		sb.WriteString("System Message Summary (for context):\n" + systemSummary + "\n\n")
	}
	sb.WriteString("Conversation Summary (last turns or summarized):\n" + recentContext + "\n\n")
	sb.WriteString("Please create a very short (2-4 words) summary title for the above context.")

	result, err := llmrouter.Generate(ctx, bag, titleModel, []providers.Message{{Role: "system", Content: sb.String()}}, titleTemperature, providers.GenerateOpts{MaxTokens: titleMaxTokens})
	if err != nil || strings.TrimSpace(result.Content) == "" {
		return fallbackTitle
	}
	return strings.TrimSpace(result.Content)
}

// summarizeText asks the model to summarize text under the given
// instruction prompt, falling back to a rough character truncation when
// the call fails.
func summarizeText(ctx context.Context, bag *llmrouter.Bag, text, prompt string) string {
	result, err := llmrouter.Generate(ctx, bag, summaryModel, []providers.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: text},
	}, 0.3, providers.GenerateOpts{MaxTokens: summaryMaxTokens})
	if err != nil {
		limit := summaryMaxTokens * 4
		if len(text) < limit {
			return text
		}
		return text[:limit]
	}
	return strings.TrimSpace(result.Content)
}

func extractSystemMessage(messages []providers.Message) string {
	for _, m := range messages {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}

// extractUserAssistantContent joins the content of the last maxTurns
// user/assistant messages with spaces.
func extractUserAssistantContent(messages []providers.Message, maxTurns int) string {
	var filtered []string
	for _, m := range messages {
		if m.Role == "user" || m.Role == "assistant" {
			filtered = append(filtered, m.Content)
		}
	}
	if len(filtered) > maxTurns {
		filtered = filtered[len(filtered)-maxTurns:]
	}
	return strings.Join(filtered, " ")
}
