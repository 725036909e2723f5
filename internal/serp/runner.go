package serp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// RunnerConfig controls batch execution.
type RunnerConfig struct {
	// Topic is the completion-event topic. Publishing is skipped when empty.
	Topic string
}

// Runner executes the scrape pipeline over a batch of queries, bounded by a
// global query-concurrency limiter, and routes each finished document to the
// sink. Queries are independent: a sink failure on one never halts the
// others, and queries may finish and persist in any order.
type Runner struct {
	scraper   QueryScraper
	sink      Sink
	publisher Publisher
	querySem  *semaphore.Weighted
	cfg       RunnerConfig
	logger    *zap.Logger
}

// NewRunner constructs a Runner. The semaphore is the global query limiter,
// shared state owned by the caller. publisher may be nil.
func NewRunner(
	scraper QueryScraper,
	sink Sink,
	publisher Publisher,
	querySem *semaphore.Weighted,
	cfg RunnerConfig,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		scraper:   scraper,
		sink:      sink,
		publisher: publisher,
		querySem:  querySem,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run scrapes all queries concurrently, at most the limiter's weight in
// flight at once, and blocks until every query has been processed. Sink
// failures are collected and returned joined; they never abort sibling
// queries.
func (r *Runner) Run(ctx context.Context, queries []string) error {
	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID))
	log.Info("starting batch run", zap.Int("queries", len(queries)))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, query := range queries {
		wg.Add(1)
		go func(query string) {
			defer wg.Done()
			if err := r.processQuery(ctx, runID, query, log); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(query)
	}
	wg.Wait()

	log.Info("batch run finished", zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}

func (r *Runner) processQuery(ctx context.Context, runID, query string, log *zap.Logger) error {
	if err := r.querySem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire query slot for %q: %w", query, err)
	}
	defer r.querySem.Release(1)

	doc := r.scraper.Scrape(ctx, query)
	key := DocumentKey(query)

	records, err := r.sink.Store(ctx, key, doc)
	if err != nil {
		SinkErrorsTotal.Inc()
		log.Error("store document failed",
			zap.String("query", query),
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("store document for %q: %w", query, err)
	}

	DocumentsStoredTotal.Inc()
	log.Info("document stored",
		zap.String("query", query),
		zap.String("key", key),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("records", records),
	)

	r.publishStored(ctx, runID, query, key, doc, records, log)
	return nil
}

func (r *Runner) publishStored(
	ctx context.Context,
	runID string,
	query string,
	key string,
	doc Document,
	records int,
	log *zap.Logger,
) {
	if r.publisher == nil || r.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"run_id":    runID,
		"query":     query,
		"key":       key,
		"pages":     len(doc.Pages),
		"records":   records,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := r.publisher.Publish(ctx, r.cfg.Topic, payload); err != nil {
		log.Warn("publish completion event failed",
			zap.String("query", query),
			zap.Error(err),
		)
	}
}
