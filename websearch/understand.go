package websearch

import (
	"context"
	"strings"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/llmrouter"
	"github.com/ghiac/chatforge/providers"
)

// previewChars bounds how much of each prior turn is shown to the
// query-understanding prompt.
const previewChars = 200

// UnderstandQuery asks the LLM for a concise interpretation of what
// information the user is seeking, given recent conversation history plus
// the new query. Standard mode always uses queryGenModel; deep mode passes
// the caller's chosen model.
func UnderstandQuery(ctx context.Context, bag *llmrouter.Bag, model string, messages []providers.Message, userQuery string) (string, error) {
	var history strings.Builder
	for _, m := range recentMessages(messages) {
		content := m.Content
		if len(content) > previewChars {
			content = content[:previewChars] + "..."
		}
		history.WriteString(capitalize(m.Role))
		history.WriteString(": ")
		history.WriteString(content)
		history.WriteString("\n")
	}

	system := "Provide a concise interpretation of what information the user is seeking, " +
		"given the conversation so far and their latest message. Respond with only the interpretation."
	user := history.String() + "New query: " + userQuery

	llmMessages := []providers.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	result, err := llmrouter.Generate(ctx, bag, model, llmMessages, 0.3, providers.GenerateOpts{})
	if err != nil {
		return "", apperr.WrapProviderError(err, "understand query")
	}
	interpretation := strings.TrimSpace(result.Content)
	if interpretation == "" {
		return userQuery, nil
	}
	return interpretation, nil
}
