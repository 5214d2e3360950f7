package orchestrator

import (
	"context"
	"strings"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/llmrouter"
	"github.com/ghiac/chatforge/providers"
)

const (
	rewriteModel         = "gpt-4o-mini"
	maxSummaryInputChars = 16000 * 4
)

// rewriteConciseQuery summarizes an over-long semantic-search query into a
// short phrase suitable for embedding. Grounded on
// vector_search_utils.py's generate_concise_query_for_embedding.
func rewriteConciseQuery(ctx context.Context, bag *llmrouter.Bag, longQuery string) (string, error) {
	if len(longQuery) > maxSummaryInputChars {
		longQuery = longQuery[:maxSummaryInputChars] + "..."
	}

	system := "You are an expert at summarizing long texts into concise search queries.\n" +
		"Analyze the following text and extract the core question, topic, or instruction.\n" +
		"Your output should be a short phrase or sentence (ideally under 100 words, definitely under 500 tokens)\n" +
		"that captures the essence of the text and is suitable for a semantic database search.\n" +
		"Focus on the key entities, concepts, and the user's likely goal.\n" +
		"Respond ONLY with the concise search query, no preamble or explanation."

	messages := []providers.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: longQuery},
	}
	result, err := llmrouter.Generate(ctx, bag, rewriteModel, messages, 0.1, providers.GenerateOpts{})
	if err != nil {
		return "", apperr.WrapProviderError(err, "rewrite concise embedding query")
	}
	concise := strings.TrimSpace(result.Content)
	if concise == "" {
		return "", apperr.ProviderError("model returned an empty concise query")
	}
	return concise, nil
}
