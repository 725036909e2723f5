// Package parse extracts structured result records from raw search result
// markup.
package parse

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/searchops/serp-harvester/internal/serp"
)

const (
	// sponsoredMarker flags results injected by an upstream ad network.
	sponsoredMarker = "provided by google"
	// noTitle is the sentinel used when a link carries no usable text.
	noTitle = "No title"
	// faviconService resolves a domain to its favicon image.
	faviconService = "https://www.google.com/s2/favicons?domain="
)

// descriptionClasses mark the div most likely to hold the result snippet.
var descriptionClasses = []string{"description", "snippet", "result"}

// HTMLParser implements serp.Parser over real search result markup. It is a
// pure transformation: it may log, but it never fails the pipeline.
type HTMLParser struct {
	logger *zap.Logger
}

// NewHTMLParser constructs an HTMLParser.
func NewHTMLParser(logger *zap.Logger) *HTMLParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTMLParser{logger: logger}
}

// Parse extracts result records in document order. Candidate containers are
// div elements whose class does not suggest advertising or cookie-notice UI;
// a candidate is accepted only if it holds a descendant hyperlink with an
// absolute target. Sponsored candidates are dropped even when their link is
// valid. Absent content yields an empty PageResult for the page index.
func (p *HTMLParser) Parse(outcome serp.FetchOutcome, query string, page int) serp.PageResult {
	result := serp.PageResult{Page: page, Results: []serp.ResultRecord{}}
	if !outcome.OK {
		return result
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(outcome.Body))
	if err != nil {
		p.logger.Warn("parse markup failed",
			zap.String("query", query),
			zap.Int("page", page),
			zap.Error(err),
		)
		return result
	}

	doc.Find("div").Each(func(_ int, sel *goquery.Selection) {
		record, ok := p.extractRecord(sel, query)
		if !ok {
			return
		}
		result.Results = append(result.Results, record)
	})

	p.logger.Info("extracted records",
		zap.String("query", query),
		zap.Int("page", page),
		zap.Int("records", len(result.Results)),
	)
	return result
}

func (p *HTMLParser) extractRecord(sel *goquery.Selection, query string) (serp.ResultRecord, bool) {
	class, _ := sel.Attr("class")
	lowered := strings.ToLower(class)
	if strings.Contains(lowered, "ad") || strings.Contains(lowered, "cookie") {
		return serp.ResultRecord{}, false
	}
	if strings.Contains(strings.ToLower(sel.Text()), sponsoredMarker) {
		return serp.ResultRecord{}, false
	}

	link, linkText, ok := firstAbsoluteLink(sel)
	if !ok {
		return serp.ResultRecord{}, false
	}

	title := strings.TrimSpace(linkText)
	if title == "" {
		title = noTitle
	}

	return serp.ResultRecord{
		Title:       title,
		Link:        link,
		Description: description(sel),
		FaviconPath: faviconPath(link),
		Keyword:     query,
	}, true
}

// firstAbsoluteLink returns the target and text of the first descendant
// hyperlink with an absolute http(s) target, in document order.
func firstAbsoluteLink(sel *goquery.Selection) (href string, text string, ok bool) {
	sel.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		target, _ := a.Attr("href")
		if !strings.HasPrefix(target, "http") {
			return true
		}
		href = target
		text = a.Text()
		ok = true
		return false
	})
	return href, text, ok
}

// description picks the first descendant div whose class hints at a result
// snippet. Missing descriptions resolve to the empty string.
func description(sel *goquery.Selection) string {
	var out string
	sel.Find("div[class]").EachWithBreak(func(_ int, d *goquery.Selection) bool {
		class, _ := d.Attr("class")
		lowered := strings.ToLower(class)
		for _, marker := range descriptionClasses {
			if strings.Contains(lowered, marker) {
				out = strings.TrimSpace(d.Text())
				return false
			}
		}
		return true
	})
	return out
}

// faviconPath derives the favicon reference from the link's domain.
func faviconPath(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return faviconService
	}
	return faviconService + u.Hostname()
}
