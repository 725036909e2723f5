package serp

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ScraperConfig controls per-query scraping behavior.
type ScraperConfig struct {
	// BaseURL is the search endpoint without query parameters.
	BaseURL string
	// Pages is the number of result pages requested per query.
	Pages int
}

// Scraper fetches and parses every result page of a query concurrently and
// assembles the pages into a Document in page-index order.
type Scraper struct {
	fetcher Fetcher
	parser  Parser
	cfg     ScraperConfig
	logger  *zap.Logger
}

// NewScraper constructs a Scraper.
func NewScraper(fetcher Fetcher, parser Parser, cfg ScraperConfig, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		fetcher: fetcher,
		parser:  parser,
		cfg:     cfg,
		logger:  logger,
	}
}

// Scrape fetches all pages for the query concurrently. Page failures are
// isolated: a page whose retries are exhausted, or whose goroutine panics,
// contributes an empty PageResult without disturbing its siblings. The
// returned document always holds exactly cfg.Pages entries ordered by page
// index, regardless of fetch completion order.
func (s *Scraper) Scrape(ctx context.Context, query string) Document {
	requests := PageRequests(s.cfg.BaseURL, query, s.cfg.Pages)
	pages := make([]PageResult, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req PageRequest) {
			defer wg.Done()
			pages[i] = s.scrapePage(ctx, req)
		}(i, req)
	}
	wg.Wait()

	return Document{Query: query, Pages: pages}
}

func (s *Scraper) scrapePage(ctx context.Context, req PageRequest) (result PageResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("page task panicked",
				zap.String("query", req.Query),
				zap.Int("page", req.Page),
				zap.Any("panic", r),
			)
			result = PageResult{Page: req.Page, Results: []ResultRecord{}}
		}
	}()

	outcome := s.fetcher.Fetch(ctx, req.URL)
	if !outcome.OK {
		s.logger.Warn("page content unavailable",
			zap.String("query", req.Query),
			zap.Int("page", req.Page),
			zap.String("url", req.URL),
		)
	}

	parsed := s.parser.Parse(outcome, req.Query, req.Page)
	RecordsParsedTotal.Add(float64(len(parsed.Results)))
	s.logger.Debug("page parsed",
		zap.String("query", req.Query),
		zap.Int("page", req.Page),
		zap.Int("records", len(parsed.Results)),
	)
	return parsed
}
