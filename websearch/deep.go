package websearch

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/fsutil"
	"github.com/ghiac/chatforge/llmrouter"
	"github.com/ghiac/chatforge/log"
	"github.com/ghiac/chatforge/providers"
)

// fanOutLimit bounds how many deep-search page fetches run concurrently.
// Per-result summarization runs sequentially.
const fanOutLimit = 4

// DeepSearchQueryCount is fixed at exactly three queries per the spec's
// Open Question decision: deep search is hard-coded, not configurable.
const DeepSearchQueryCount = 3

// maxContentLength truncates page content before summarization.
const maxContentLength = 5000

// modelFallback is the cheaper backstop model used when the caller's
// chosen model yields an empty summary or combination.
const modelFallback = "gpt-3.5-turbo"

type generatedQueries struct {
	Queries []string `json:"queries"`
}

// GenerateSearchQueries asks the LLM for exactly three diverse search
// queries as JSON; a malformed or short response is an error, not a
// fallback (unlike the standard pipeline's single-query rewrite).
func GenerateSearchQueries(ctx context.Context, bag *llmrouter.Bag, model, interpretation string) ([]string, error) {
	system := `Generate three diverse search queries based on the given interpretation. Respond with only valid JSON in the format: {"queries": ["query1", "query2", "query3"]}`
	messages := []providers.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: interpretation},
	}
	result, err := llmrouter.Generate(ctx, bag, model, messages, 0.3, providers.GenerateOpts{})
	if err != nil {
		return nil, apperr.WrapProviderError(err, "generate search queries")
	}
	var parsed generatedQueries
	if err := json.Unmarshal([]byte(strings.TrimSpace(result.Content)), &parsed); err != nil {
		return nil, apperr.WrapValidation(err, "failed to parse generated search queries")
	}
	if len(parsed.Queries) < DeepSearchQueryCount {
		return nil, apperr.Validation("expected %d search queries, got %d", DeepSearchQueryCount, len(parsed.Queries))
	}
	return parsed.Queries, nil
}

// PerformMultipleSearches runs each query sequentially under the shared 1
// rps Brave limiter, deduplicating by URL and tolerating per-query
// failures. It fails only when every query fails.
func PerformMultipleSearches(ctx context.Context, brave *BraveClient, queries []string) ([]Result, error) {
	var all []Result
	seen := make(map[string]bool)
	successful := 0

	for i, q := range queries {
		results, err := brave.Search(ctx, q)
		if err != nil {
			log.Log.Errorf("websearch: search %d/%d for %q failed: %v", i+1, len(queries), q, err)
			continue
		}
		for _, r := range results {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			all = append(all, r)
		}
		successful++
	}

	if successful == 0 {
		return nil, apperr.ProviderError("all search queries failed due to rate limits or errors")
	}
	return all, nil
}

// renumberCitations assigns unique, contiguous citation numbers across the
// combined result set, replacing whatever per-query numbering each result
// carried.
func renumberCitations(results []Result) []Result {
	out := make([]Result, len(results))
	for i, r := range results {
		r.CitationNumber = i + 1
		out[i] = r
	}
	return out
}

type resultSummary struct {
	Index   int    `json:"index"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// IntelligentSummarize summarizes content with emphasis on query relevance
// and verbatim code, truncating content beyond maxContentLength.
func IntelligentSummarize(ctx context.Context, bag *llmrouter.Bag, model, content, query string) (string, error) {
	if content == "" {
		return "No content available for summarization.", nil
	}
	truncated := content
	if len(content) > maxContentLength {
		truncated = content[:maxContentLength] + "... [Content truncated]"
	}
	system := "You are an advanced AI assistant tasked with intelligently summarizing web content. " +
		"Your summaries should be informative, relevant to the query, and include key information. " +
		"If the content contains code, especially for newer libraries, repos, or APIs, include it verbatim in your summary. " +
		"Adjust the level of detail based on the content's relevance and information density. " +
		"Your summary should be comprehensive yet concise."
	user := "Summarize the following content, focusing on information relevant to the query: \"" + query + "\"\n" +
		"Content: " + truncated + "\n" +
		"Remember to include any relevant code snippets verbatim, especially if they relate to new technologies or APIs."

	messages := []providers.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	result, err := llmrouter.Generate(ctx, bag, model, messages, 0.3, providers.GenerateOpts{})
	if err != nil {
		return "", apperr.WrapProviderError(err, "intelligent summarize")
	}
	return strings.TrimSpace(result.Content), nil
}

// SummarizeSearchResults summarizes every fetched result, falling back to
// modelFallback per-result when the primary model yields nothing, then
// combines the surviving summaries. Fails only if every summarization
// attempt fails.
func SummarizeSearchResults(ctx context.Context, bag *llmrouter.Bag, model string, results []FetchedResult, query string) (string, error) {
	if len(results) == 0 {
		return "No search results were found to summarize.", nil
	}

	var summaries []resultSummary
	for _, r := range results {
		if r.Content == "" {
			continue
		}
		summary, err := IntelligentSummarize(ctx, bag, model, r.Content, query)
		if err == nil && summary == "" {
			summary, err = IntelligentSummarize(ctx, bag, modelFallback, r.Content, query)
		}
		if err != nil || summary == "" {
			log.Log.Errorf("websearch: summarizing %s failed: %v", r.URL, err)
			continue
		}
		summaries = append(summaries, resultSummary{Index: r.CitationNumber, URL: r.URL, Summary: summary})
	}
	if len(summaries) == 0 {
		return "", apperr.ProviderError("failed to generate any summaries from the search results")
	}

	combined, err := combineSummaries(ctx, bag, model, summaries, query)
	if err != nil {
		return fallbackCombinedSummary(summaries), nil
	}
	return appendMissingSources(combined, summaries), nil
}

func combineSummaries(ctx context.Context, bag *llmrouter.Bag, model string, summaries []resultSummary, query string) (string, error) {
	payload, _ := json.MarshalIndent(summaries, "", "  ")
	system := "You are an expert at combining multiple sources into clear, comprehensive summaries. " +
		"Focus on accuracy, clarity, and proper citation of sources. Preserve technical details and code snippets exactly as provided."
	user := "Combine these summaries into a coherent response that answers the query: \"" + query + "\"\n" +
		"Requirements:\nInclude relevant information from all sources\n" +
		"Use numbered footnotes [1], [2], etc. for citations\n" +
		"Preserve any code snippets exactly as they appear\n" +
		"Include all sources in the final 'Sources:' section\n" +
		"Maintain a clear, logical flow of information\nFocus on information relevant to the query\n" +
		"Summaries to combine:\n" + string(payload)

	messages := []providers.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	result, err := llmrouter.Generate(ctx, bag, model, messages, 0.3, providers.GenerateOpts{})
	if err != nil || strings.TrimSpace(result.Content) == "" {
		if model == modelFallback {
			return "", apperr.ProviderError("combine summaries failed")
		}
		result, err = llmrouter.Generate(ctx, bag, modelFallback, messages, 0.3, providers.GenerateOpts{})
		if err != nil || strings.TrimSpace(result.Content) == "" {
			return "", apperr.ProviderError("combine summaries failed on fallback model")
		}
	}
	return strings.TrimSpace(result.Content), nil
}

func fallbackCombinedSummary(summaries []resultSummary) string {
	var sb strings.Builder
	sb.WriteString("Summary of found information:\n\n")
	for _, s := range summaries {
		sb.WriteString(citationTag(s.Index) + " " + s.Summary + "\n\n")
	}
	sb.WriteString("\nSources:\n")
	for _, s := range summaries {
		sb.WriteString(citationTag(s.Index) + " " + s.URL + "\n")
	}
	return sb.String()
}

// appendMissingSources guarantees every citation referenced in summaries
// appears somewhere in the combined text, per §4.3's completeness rule.
func appendMissingSources(combined string, summaries []resultSummary) string {
	var missing []resultSummary
	for _, s := range summaries {
		if !strings.Contains(combined, citationTag(s.Index)) {
			missing = append(missing, s)
		}
	}
	if len(missing) == 0 {
		return combined
	}
	var sb strings.Builder
	sb.WriteString(combined)
	sb.WriteString("\n\nAdditional Sources:\n")
	for _, s := range missing {
		sb.WriteString(citationTag(s.Index) + " " + s.URL + "\n")
	}
	return sb.String()
}

func citationTag(n int) string {
	return "[" + strconv.Itoa(n) + "]"
}

// DeepSearch runs the full deep pipeline: generate three queries, search
// sequentially with dedup and partial-failure tolerance, renumber
// citations, fetch full content concurrently (at most fanOutLimit at a
// time), summarize per result, then combine.
func DeepSearch(ctx context.Context, bag *llmrouter.Bag, model string, understoodQuery, userID, systemMessageID string, brave *BraveClient, resolver *fsutil.Resolver) (queries []string, summary string, err error) {
	queries, err = GenerateSearchQueries(ctx, bag, model, understoodQuery)
	if err != nil {
		return nil, "", err
	}
	if len(queries) > DeepSearchQueryCount {
		queries = queries[:DeepSearchQueryCount]
	}

	results, err := PerformMultipleSearches(ctx, brave, queries)
	if err != nil {
		return nil, "", err
	}
	if len(results) == 0 {
		return queries, "No relevant web search results were found.", nil
	}

	results = renumberCitations(results)

	fetched := make([]FetchedResult, len(results))
	sem := make(chan struct{}, fanOutLimit)
	var wg sync.WaitGroup
	for i, r := range results {
		wg.Add(1)
		go func(i int, r Result) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			fr := FetchedResult{Result: r, Content: FetchFull(ctx, r.URL)}
			if err := PersistResult(resolver, userID, systemMessageID, i+1, fr); err != nil {
				log.Log.Warnf("websearch: persisting deep result %d failed: %v", i+1, err)
			}
			fetched[i] = fr
		}(i, r)
	}
	wg.Wait()

	summary, err = SummarizeSearchResults(ctx, bag, model, fetched, understoodQuery)
	if err != nil {
		return nil, "", err
	}
	return queries, summary, nil
}
