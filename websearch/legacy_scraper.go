package websearch

import "context"

// LegacyScraperStub keeps the call shape of the original's disabled
// crawling-framework orchestrator (original_source's
// web_scraper_orchestrator.py) without reimplementing any crawling. It is
// not registered on any HTTP route and nothing in the service calls it.
type LegacyScraperStub struct{}

// Run always returns ErrNotImplemented, matching the original's disabled
// orchestrator.
func (LegacyScraperStub) Run(ctx context.Context, websiteURL string) (string, error) {
	return "", ErrNotImplemented
}
