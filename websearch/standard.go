package websearch

import (
	"context"
	"strings"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/fsutil"
	"github.com/ghiac/chatforge/llmrouter"
	"github.com/ghiac/chatforge/log"
	"github.com/ghiac/chatforge/providers"
)

// queryGenModel is the fixed cheap model used for standard-mode query
// rewriting, matching the original's gpt-4o-mini-2024-07-18.
// Standard-mode summarization uses the caller's model.
const queryGenModel = "gpt-4o-mini-2024-07-18"

// GenerateSingleSearchQuery rewrites userQuery into one concise search
// query using recent conversation history for context. Any failure, or a
// generated query shorter than 3 characters, falls back to the original
// query.
func GenerateSingleSearchQuery(ctx context.Context, bag *llmrouter.Bag, recent []providers.Message, userQuery string) string {
	system := `Generate a single, focused search query based on the conversation history and user query.
The query should:
- Capture the main intent of the user's request
- Be specific enough to find relevant information
- Be general enough to get comprehensive results
- Use key terms from the original query
- Be formatted for web search (no special characters or formatting)
Respond with ONLY the search query, no additional text or explanation.`

	var history strings.Builder
	for _, m := range recent {
		history.WriteString(capitalize(m.Role))
		history.WriteString(": ")
		history.WriteString(m.Content)
		history.WriteString("\n")
	}
	if history.Len() > 0 {
		history.WriteString("Current Query: ")
		history.WriteString(userQuery)
	} else {
		history.WriteString("Query: ")
		history.WriteString(userQuery)
	}

	messages := []providers.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: history.String()},
	}

	result, err := llmrouter.Generate(ctx, bag, queryGenModel, messages, 0.3, providers.GenerateOpts{})
	if err != nil {
		log.Log.Warnf("websearch: query generation failed, using original query: %v", err)
		return strings.TrimSpace(userQuery)
	}
	generated := strings.TrimSpace(result.Content)
	if len(generated) < 3 {
		log.Log.Warnf("websearch: generated query too short, using original query")
		return strings.TrimSpace(userQuery)
	}
	return generated
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// recentMessages returns up to the last 5 messages, matching the
// original's messages[-5:].
func recentMessages(messages []providers.Message) []providers.Message {
	if len(messages) <= 5 {
		return messages
	}
	return messages[len(messages)-5:]
}

// StandardSearch runs the four-step standard pipeline: rewrite the query,
// search once, fetch partial content for each hit, then produce one cited
// summary.
func StandardSearch(ctx context.Context, bag *llmrouter.Bag, model string, messages []providers.Message, understoodQuery, userID, systemMessageID string, brave *BraveClient, resolver *fsutil.Resolver) (queries []string, summary string, err error) {
	searchQuery := GenerateSingleSearchQuery(ctx, bag, recentMessages(messages), understoodQuery)
	log.Log.Infof("websearch: generated search query %q", searchQuery)

	results, err := brave.Search(ctx, searchQuery)
	if err != nil {
		return nil, "", apperr.WrapProviderError(err, "standard web search failed")
	}
	if len(results) == 0 {
		return []string{searchQuery}, "No relevant web search results were found.", nil
	}

	fetched := make([]FetchedResult, 0, len(results))
	for i, r := range results {
		fr := FetchedResult{Result: r, Content: FetchPartial(ctx, r.URL)}
		if err := PersistResult(resolver, userID, systemMessageID, i+1, fr); err != nil {
			log.Log.Warnf("websearch: persisting result %d failed: %v", i+1, err)
		}
		fetched = append(fetched, fr)
	}

	summary, err = summarizeStandardResults(ctx, bag, model, fetched, understoodQuery)
	if err != nil {
		return nil, "", err
	}
	return []string{searchQuery}, summary, nil
}

func summarizeStandardResults(ctx context.Context, bag *llmrouter.Bag, model string, results []FetchedResult, query string) (string, error) {
	var combined strings.Builder
	for i, r := range results {
		if i > 0 {
			combined.WriteString("\n\n")
		}
		combined.WriteString("Title: " + r.Title + "\nURL: " + r.URL + "\nPartial Content: " + r.Content)
	}

	system := `Summarize the given search results, focusing on information relevant to the query.
Include key points from each result and cite them using numbered footnotes [1], [2], etc.
At the end, include a 'Sources:' section with full URLs for each footnote.`
	user := "Summarize the following search results, focusing on information relevant to the query: \"" + query + "\"\n" +
		"Search Results:\n" + combined.String() + "\n" +
		"Provide a concise but comprehensive summary that addresses the query, citing sources with footnotes."

	messages := []providers.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	result, err := llmrouter.Generate(ctx, bag, model, messages, 0.3, providers.GenerateOpts{})
	if err != nil {
		return "", apperr.WrapProviderError(err, "summarize standard search results")
	}
	return strings.TrimSpace(result.Content), nil
}
