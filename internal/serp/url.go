package serp

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// PageURL builds the target URL for one result page of a query. Page 1 is the
// bare search URL; later pages carry the page-offset parameter p=index-1.
// The query is escaped here so the resulting URL is fully formed. Spaces are
// percent-encoded rather than left as +.
func PageURL(baseURL, query string, page int) string {
	escaped := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	if page <= 1 {
		return fmt.Sprintf("%s?q=%s", baseURL, escaped)
	}
	return fmt.Sprintf("%s?q=%s&p=%d", baseURL, escaped, page-1)
}

// PageRequests derives the requests for pages 1..pages of a query.
func PageRequests(baseURL, query string, pages int) []PageRequest {
	reqs := make([]PageRequest, 0, pages)
	for page := 1; page <= pages; page++ {
		reqs = append(reqs, PageRequest{
			Query: query,
			Page:  page,
			URL:   PageURL(baseURL, query, page),
		})
	}
	return reqs
}

// DocumentKey derives the stable destination identifier for a query: keep
// alphanumerics, spaces, and underscores, then replace spaces with
// underscores. The same query text always yields the same key, so re-runs
// overwrite their previous output.
func DocumentKey(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range query {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
