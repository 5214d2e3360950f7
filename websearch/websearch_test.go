package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/fsutil"
)

func TestBraveClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("count") != "3" {
			t.Errorf("expected count=3, got %q", r.URL.Query().Get("count"))
		}
		if r.Header.Get("X-Subscription-Token") != "test-key" {
			t.Errorf("expected subscription token header, got %q", r.Header.Get("X-Subscription-Token"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"web": map[string]any{
				"results": []map[string]any{
					{"title": "A", "url": "https://a.example", "description": "desc a"},
					{"title": "B", "url": "https://b.example", "description": "desc b"},
				},
			},
		})
	}))
	defer server.Close()

	withBraveURL(t, server.URL)
	client := &BraveClient{APIKey: "test-key", HTTPClient: server.Client()}
	results, err := client.Search(context.Background(), "golang")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].CitationNumber != 1 || results[1].CitationNumber != 2 {
		t.Fatalf("expected contiguous 1-based citation numbers, got %+v", results)
	}
}

// withBraveURL points the package-level Brave endpoint at a local test
// server for the duration of the test.
func withBraveURL(t *testing.T, url string) {
	t.Helper()
	orig := braveSearchURL
	braveSearchURL = url
	t.Cleanup(func() { braveSearchURL = orig })
}

func TestBraveClient_RateLimitMapsToRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	withBraveURL(t, server.URL)
	client := &BraveClient{APIKey: "k", HTTPClient: server.Client()}
	_, err := client.Search(context.Background(), "golang")
	if err == nil {
		t.Fatal("expected an error on 429")
	}
	if !apperr.Is(err, apperr.KindRateLimited) {
		t.Fatalf("expected a RateLimited error on 429, got %v", err)
	}
}

func TestRenumberCitations(t *testing.T) {
	in := []Result{{URL: "a", CitationNumber: 5}, {URL: "b", CitationNumber: 9}}
	out := renumberCitations(in)
	if out[0].CitationNumber != 1 || out[1].CitationNumber != 2 {
		t.Fatalf("expected renumbered 1,2, got %+v", out)
	}
}

func TestPerformMultipleSearches_FailsOnlyWhenEveryQueryFails(t *testing.T) {
	// An unreachable endpoint: every search fails, so the whole call should
	// surface an error rather than silently returning no results.
	withBraveURL(t, "http://127.0.0.1:1")
	dead := &BraveClient{APIKey: "k", HTTPClient: &http.Client{Timeout: 500_000_000}}
	_, err := PerformMultipleSearches(context.Background(), dead, []string{"first query", "second query"})
	if err == nil {
		t.Fatal("expected an error when every query fails")
	}
}

func TestAppendMissingSources(t *testing.T) {
	summaries := []resultSummary{{Index: 1, URL: "https://a.example", Summary: "s1"}, {Index: 2, URL: "https://b.example", Summary: "s2"}}
	combined := "Some text mentioning [1] only."
	out := appendMissingSources(combined, summaries)
	if !strings.Contains(out, "[2]") || !strings.Contains(out, "https://b.example") {
		t.Fatalf("expected missing citation [2] appended, got %q", out)
	}
}

func TestFetchPartial_TruncatesTo1000Chars(t *testing.T) {
	long := ""
	for i := 0; i < 2000; i++ {
		long += "a"
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>" + long + "</p></body></html>"))
	}))
	defer server.Close()

	text := FetchPartial(context.Background(), server.URL)
	if len(text) > partialContentChars {
		t.Fatalf("expected at most %d chars, got %d", partialContentChars, len(text))
	}
}

func TestFetchFull_StripsScriptAndStyle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><style>body{color:red}</style></head><body><script>evil()</script><p>hello world</p></body></html>"))
	}))
	defer server.Close()

	text := FetchFull(context.Background(), server.URL)
	if strings.Contains(text, "evil") || strings.Contains(text, "color:red") {
		t.Fatalf("expected script/style content stripped, got %q", text)
	}
	if !strings.Contains(text, "hello world") {
		t.Fatalf("expected visible text preserved, got %q", text)
	}
}

func TestPersistResult_WritesJSONFile(t *testing.T) {
	resolver := fsutil.NewResolver(t.TempDir())
	fr := FetchedResult{Result: Result{Title: "T", URL: "https://x", CitationNumber: 1}, Content: "body"}
	if err := PersistResult(resolver, "user-1", "sm-1", 1, fr); err != nil {
		t.Fatalf("PersistResult: %v", err)
	}
}
