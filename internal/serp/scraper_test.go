package serp

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubFetcher answers by URL, optionally delaying so completion order differs
// from page order.
type stubFetcher struct {
	delays    map[string]time.Duration
	outcomes  map[string]FetchOutcome
	panicURLs map[string]bool
}

func (f *stubFetcher) Fetch(_ context.Context, url string) FetchOutcome {
	if d, ok := f.delays[url]; ok {
		time.Sleep(d)
	}
	if f.panicURLs[url] {
		panic("fetch blew up")
	}
	return f.outcomes[url]
}

// echoParser turns the body into a single record so tests can see which page
// content landed where.
type echoParser struct{}

func (echoParser) Parse(outcome FetchOutcome, query string, page int) PageResult {
	result := PageResult{Page: page, Results: []ResultRecord{}}
	if !outcome.OK {
		return result
	}
	result.Results = append(result.Results, ResultRecord{
		Title:   string(outcome.Body),
		Keyword: query,
	})
	return result
}

func TestScrapeAssemblesPagesInOrder(t *testing.T) {
	t.Parallel()

	const pages = 5
	base := "https://search.example/s"
	fetcher := &stubFetcher{
		delays:   map[string]time.Duration{},
		outcomes: map[string]FetchOutcome{},
	}
	// Later pages finish first.
	for page := 1; page <= pages; page++ {
		url := PageURL(base, "cats", page)
		fetcher.delays[url] = time.Duration(pages-page) * 20 * time.Millisecond
		fetcher.outcomes[url] = FetchOutcome{Body: []byte(fmt.Sprintf("page-%d", page)), OK: true}
	}

	scraper := NewScraper(fetcher, echoParser{}, ScraperConfig{BaseURL: base, Pages: pages}, zap.NewNop())
	doc := scraper.Scrape(context.Background(), "cats")

	require.Len(t, doc.Pages, pages)
	for i, pr := range doc.Pages {
		assert.Equal(t, i+1, pr.Page)
		require.Len(t, pr.Results, 1)
		assert.Equal(t, fmt.Sprintf("page-%d", i+1), pr.Results[0].Title)
	}
}

func TestScrapeFailedPageYieldsEmptyResult(t *testing.T) {
	t.Parallel()

	base := "https://search.example/s"
	fetcher := &stubFetcher{outcomes: map[string]FetchOutcome{
		PageURL(base, "dogs", 1): {Body: []byte("page-1"), OK: true},
		// page 2 stays absent
		PageURL(base, "dogs", 3): {Body: []byte("page-3"), OK: true},
	}}

	scraper := NewScraper(fetcher, echoParser{}, ScraperConfig{BaseURL: base, Pages: 3}, zap.NewNop())
	doc := scraper.Scrape(context.Background(), "dogs")

	require.Len(t, doc.Pages, 3)
	assert.Len(t, doc.Pages[0].Results, 1)
	assert.Equal(t, 2, doc.Pages[1].Page)
	assert.Empty(t, doc.Pages[1].Results)
	assert.NotNil(t, doc.Pages[1].Results)
	assert.Len(t, doc.Pages[2].Results, 1)
}

func TestScrapePanicIsIsolatedToItsPage(t *testing.T) {
	t.Parallel()

	base := "https://search.example/s"
	fetcher := &stubFetcher{
		outcomes: map[string]FetchOutcome{
			PageURL(base, "cats", 1): {Body: []byte("page-1"), OK: true},
			PageURL(base, "cats", 3): {Body: []byte("page-3"), OK: true},
		},
		panicURLs: map[string]bool{
			PageURL(base, "cats", 2): true,
		},
	}

	scraper := NewScraper(fetcher, echoParser{}, ScraperConfig{BaseURL: base, Pages: 3}, zap.NewNop())

	var doc Document
	require.NotPanics(t, func() {
		doc = scraper.Scrape(context.Background(), "cats")
	})

	require.Len(t, doc.Pages, 3)
	assert.Len(t, doc.Pages[0].Results, 1)
	assert.Equal(t, 2, doc.Pages[1].Page)
	assert.Empty(t, doc.Pages[1].Results)
	assert.Len(t, doc.Pages[2].Results, 1)
}

func TestScrapeKeywordThreadedThroughRecords(t *testing.T) {
	t.Parallel()

	base := "https://search.example/s"
	query := "persian cats"
	fetcher := &stubFetcher{outcomes: map[string]FetchOutcome{
		PageURL(base, query, 1): {Body: []byte("page-1"), OK: true},
	}}

	scraper := NewScraper(fetcher, echoParser{}, ScraperConfig{BaseURL: base, Pages: 1}, zap.NewNop())
	doc := scraper.Scrape(context.Background(), query)

	require.Len(t, doc.Pages, 1)
	require.Len(t, doc.Pages[0].Results, 1)
	assert.Equal(t, query, doc.Pages[0].Results[0].Keyword)
	assert.True(t, strings.HasPrefix(doc.Pages[0].Results[0].Title, "page-"))
}
