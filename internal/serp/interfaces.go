package serp

import "context"

// Fetcher retrieves the raw content of one fully-formed URL. Retry, backoff,
// and concurrency limiting are the implementation's concern; callers only see
// the terminal outcome.
type Fetcher interface {
	Fetch(ctx context.Context, url string) FetchOutcome
}

// Parser converts raw page content into a PageResult. It is a pure function
// of its inputs: absent content yields an empty PageResult carrying the given
// page index, and parse anomalies are resolved by skip/default policies, never
// by failing the pipeline.
type Parser interface {
	Parse(outcome FetchOutcome, query string, page int) PageResult
}

// Sink persists one query's document under the given key and reports the
// number of records written.
type Sink interface {
	Store(ctx context.Context, key string, doc Document) (int, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// QueryScraper produces the full document for a single query.
type QueryScraper interface {
	Scrape(ctx context.Context, query string) Document
}
