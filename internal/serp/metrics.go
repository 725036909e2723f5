package serp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttemptsTotal tracks individual fetch attempts, including retries.
	FetchAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serp_fetch_attempts_total",
		Help: "The total number of page fetch attempts issued.",
	})
	// FetchRetriesTotal tracks attempts beyond the first for a page.
	FetchRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serp_fetch_retries_total",
		Help: "The total number of fetch retries scheduled.",
	})
	// PagesFetchedTotal tracks pages that returned a clean 200 body.
	PagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serp_pages_fetched_total",
		Help: "The total number of result pages fetched successfully.",
	})
	// PagesGivenUpTotal tracks pages abandoned after exhausting retries.
	PagesGivenUpTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serp_pages_given_up_total",
		Help: "The total number of result pages abandoned after all retries failed.",
	})
	// RecordsParsedTotal tracks result records extracted across all pages.
	RecordsParsedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serp_records_parsed_total",
		Help: "The total number of result records extracted from fetched pages.",
	})
	// DocumentsStoredTotal tracks query documents handed to the sink successfully.
	DocumentsStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serp_documents_stored_total",
		Help: "The total number of query documents persisted.",
	})
	// SinkErrorsTotal tracks failed persistence attempts.
	SinkErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serp_sink_errors_total",
		Help: "The total number of document persistence failures.",
	})
)
