package websearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/fsutil"
	"github.com/ghiac/chatforge/log"
)

// partialContentChars is how much stripped text fetch_partial keeps.
const partialContentChars = 1000

// fetchTimeout is the total time budget for a single page fetch, matching
// fetch_partial_content/fetch_full_content's 10s.
const fetchTimeout = 10 * time.Second

var fetchHTTPClient = &http.Client{Timeout: fetchTimeout}

// FetchedResult pairs a search Result with its fetched page text.
type FetchedResult struct {
	Result
	Content string `json:"content"`
}

// FetchPartial fetches url and returns up to partialContentChars of its
// stripped text. Any failure yields empty text, not an error, mirroring
// the original's "log and continue" behavior.
func FetchPartial(ctx context.Context, url string) string {
	text := fetchAndStrip(ctx, url)
	if len(text) > partialContentChars {
		return text[:partialContentChars]
	}
	return text
}

// FetchFull fetches url and returns its full stripped text.
func FetchFull(ctx context.Context, url string) string {
	return fetchAndStrip(ctx, url)
}

func fetchAndStrip(ctx context.Context, url string) string {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Log.Warnf("websearch: building request for %s failed: %v", url, err)
		return ""
	}
	resp, err := fetchHTTPClient.Do(req)
	if err != nil {
		log.Log.Warnf("websearch: fetching %s failed: %v", url, err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Log.Warnf("websearch: fetching %s returned status %d", url, resp.StatusCode)
		return ""
	}

	text, err := stripTags(resp.Body)
	if err != nil {
		log.Log.Warnf("websearch: parsing %s failed: %v", url, err)
		return ""
	}
	return text
}

// stripTags parses r as HTML and concatenates its text nodes, the Go
// equivalent of BeautifulSoup(html).get_text().
func stripTags(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(sb.String()), " "), nil
}

// PersistResult writes one fetched result to
// web_search_results/result_{n}.json under the (user, system message)
// folder, the Go equivalent of the original's per-result JSON dump.
func PersistResult(resolver *fsutil.Resolver, userID, systemMessageID string, n int, result FetchedResult) error {
	dir, err := resolver.SystemMessageDir(userID, systemMessageID, fsutil.WebSearchResults)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return apperr.WrapStoreError(err, "marshal web search result %d", n)
	}
	path := filepath.Join(dir, resultFilename(n))
	return fsutil.WriteAll(path, data)
}

func resultFilename(n int) string {
	return "result_" + strconv.Itoa(n) + ".json"
}
