// Package serp defines the core types and interfaces for the SERP harvesting
// pipeline, plus the QueryScraper and BatchRunner orchestrators.
package serp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ResultRecord is one organic search result extracted from a page.
type ResultRecord struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	FaviconPath string `json:"favicon_path"`
	Keyword     string `json:"keyword"`
}

// PageResult holds the ordered records extracted from a single result page.
// It is present for every requested page index, with an empty Results slice
// when the page could not be fetched.
type PageResult struct {
	Page    int            `json:"page"`
	Results []ResultRecord `json:"results"`
}

// Document maps a single query to its ordered sequence of page results.
// Pages are ordered by page index 1..N with no gaps. Document is the unit
// handed to a Sink.
type Document struct {
	Query string
	Pages []PageResult
}

// RecordCount returns the total number of records across all pages.
func (d Document) RecordCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Results)
	}
	return n
}

// MarshalJSON encodes the document as {"<query>": [pages...]}, matching the
// on-disk format consumers expect. HTML escaping is disabled here so result
// text reaches the sinks verbatim; json.Marshal would rewrite &, <, and >
// as \u escapes before any encoder setting could apply.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string][]PageResult{d.Query: d.Pages}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes the single-key document shape produced by MarshalJSON.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string][]PageResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("document must contain exactly one query, got %d", len(raw))
	}
	for query, pages := range raw {
		d.Query = query
		d.Pages = pages
	}
	return nil
}

// PageRequest addresses one result page of a query. Page indices are 1-based.
type PageRequest struct {
	Query string
	Page  int
	URL   string
}

// FetchOutcome is the result of a page fetch. OK is true only when a clean
// 200 response was read in full; otherwise Body is nil. Exhausted retries,
// non-200 statuses, and transport errors all resolve to the zero value.
// Absence is an expected outcome, not an error.
type FetchOutcome struct {
	Body []byte
	OK   bool
}
