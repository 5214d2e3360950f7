// Package websearch implements the Web-Search Subsystem (C10 standard, C11
// deep), grounded on
// original_source/orchestration/web_search_utils.go,
// web_search_standard.py and web_search_deep.py.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ghiac/chatforge/apperr"
)

// braveSearchURL is a var, not a const, so tests can point it at a local
// httptest server.
var braveSearchURL = "https://api.search.brave.com/res/v1/web/search"

// braveRateLimiter throttles every Brave API call across the whole process
// to 1 request/second, matching the original's module-level
// AsyncLimiter(1, 1). Shared by both the standard and deep pipelines.
var braveRateLimiter = rate.NewLimiter(rate.Limit(1), 1)

// Result is one Brave search hit, 1-based and contiguous within a single
// search call.
type Result struct {
	Title          string `json:"title"`
	URL            string `json:"url"`
	Description    string `json:"description"`
	CitationNumber int    `json:"citation_number"`
}

// BraveClient wraps the Brave web-search HTTP API.
type BraveClient struct {
	APIKey     string
	HTTPClient *http.Client
}

// NewBraveClient builds a client with a 10s-timeout HTTP client, matching
// the fetch timeouts used elsewhere in this package.
func NewBraveClient(apiKey string) *BraveClient {
	return &BraveClient{
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search calls the Brave web-search API for query with count=3, waiting on
// the shared 1 rps limiter first. A 429 response maps to
// apperr.RateLimited.
func (c *BraveClient) Search(ctx context.Context, query string) ([]Result, error) {
	if err := braveRateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, braveSearchURL, nil)
	if err != nil {
		return nil, apperr.WrapProviderError(err, "build brave search request")
	}
	q := req.URL.Query()
	q.Set("q", query)
	q.Set("count", "3")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apperr.WrapProviderError(err, "brave search request for %q", query)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperr.RateLimited("brave search rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.ProviderError("brave search returned status %d", resp.StatusCode)
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.WrapProviderError(err, "decode brave search response")
	}

	results := make([]Result, 0, len(parsed.Web.Results))
	for i, r := range parsed.Web.Results {
		results = append(results, Result{
			Title:          r.Title,
			URL:            r.URL,
			Description:    r.Description,
			CitationNumber: i + 1,
		})
	}
	return results, nil
}

// ErrNotImplemented is returned by the legacy scraper stub.
var ErrNotImplemented = fmt.Errorf("legacy scraper: not implemented")
