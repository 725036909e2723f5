package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/searchops/serp-harvester/internal/config"
	"github.com/searchops/serp-harvester/internal/fetch"
	"github.com/searchops/serp-harvester/internal/input"
	"github.com/searchops/serp-harvester/internal/parse"
	"github.com/searchops/serp-harvester/internal/publish/pubsub"
	"github.com/searchops/serp-harvester/internal/serp"
	gcssink "github.com/searchops/serp-harvester/internal/sink/gcs"
	localsink "github.com/searchops/serp-harvester/internal/sink/local"
	pgsink "github.com/searchops/serp-harvester/internal/sink/postgres"
	"github.com/searchops/serp-harvester/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// newScrapeCmd creates and configures the 'scrape' subcommand. It wires the
// fetch, parse, sink and publish components together and runs the batch over
// the queries read from the input file.
func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs a batch scrape over the configured query file",
		Long: `Reads queries from the configured input file, fetches the result
pages for each query through the proxy, parses them into structured records,
and stores one document per query in the configured sink.`,

		RunE: runScrapeCommand,
	}
	return cmd
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queries, err := input.ReadQueries(cfg.Input.Path)
	if err != nil {
		return fmt.Errorf("read queries: %w", err)
	}
	if len(queries) == 0 {
		logger.Warn("No queries in input file; nothing to do", zap.String("path", cfg.Input.Path))
		return nil
	}

	if cfg.Metrics.Addr != "" {
		metrics := telemetry.NewServer(cfg.Metrics.Addr, logger)
		metrics.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if serr := metrics.Shutdown(shutdownCtx); serr != nil {
				logger.Warn("Failed to shut down metrics server", zap.Error(serr))
			}
		}()
	}

	runner, cleanup, err := buildRunner(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := runner.Run(ctx, queries); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run batch: %w", err)
	}

	logger.Info("Scrape command finished.")
	return nil
}

// buildRunner assembles the scrape pipeline from configuration. The returned
// cleanup closes every resource the pipeline owns and is safe to call even
// when construction only partially succeeded.
func buildRunner(ctx context.Context, cfg config.Config, logger *zap.Logger) (*serp.Runner, func(), error) {
	pageSem := semaphore.NewWeighted(int64(cfg.Scrape.PageConcurrency))
	querySem := semaphore.NewWeighted(int64(cfg.Scrape.QueryConcurrency))

	fetcher, err := fetch.New(fetch.Config{
		ProxyURL: cfg.Proxy.URL,
		Retries:  cfg.Scrape.Retries,
		Backoff:  cfg.Scrape.Backoff,
		Timeout:  cfg.Scrape.RequestTimeout,
	}, pageSem, logger)
	if err != nil {
		return nil, func() {}, fmt.Errorf("init fetcher: %w", err)
	}

	scraper := serp.NewScraper(fetcher, parse.NewHTMLParser(logger), serp.ScraperConfig{
		BaseURL: cfg.Scrape.BaseURL,
		Pages:   cfg.Scrape.Pages,
	}, logger)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	sink, sinkClose, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}
	if sinkClose != nil {
		closers = append(closers, sinkClose)
	}

	publisher, pubClose, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	if pubClose != nil {
		closers = append(closers, pubClose)
	}

	runner := serp.NewRunner(scraper, sink, publisher, querySem, serp.RunnerConfig{
		Topic: cfg.PubSub.TopicName,
	}, logger)
	return runner, cleanup, nil
}

func buildSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (serp.Sink, func(), error) {
	switch cfg.Sink.Kind {
	case "local":
		sink, err := localsink.New(localsink.Config{BaseDir: cfg.Sink.Local.BaseDir}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init local sink: %w", err)
		}
		return sink, nil, nil

	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs client: %w", err)
		}
		sink, err := gcssink.New(ctx, client, gcssink.Config{
			Bucket: cfg.Sink.GCS.Bucket,
			Prefix: cfg.Sink.GCS.Prefix,
		}, logger)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("init gcs sink: %w", err)
		}
		return sink, func() {
			if cerr := client.Close(); cerr != nil {
				logger.Warn("Failed to close gcs client", zap.Error(cerr))
			}
		}, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Sink.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		sink, err := pgsink.New(pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("init postgres sink: %w", err)
		}
		if err := sink.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		return sink, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown sink kind %q", cfg.Sink.Kind)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (serp.Publisher, func(), error) {
	if cfg.PubSub.TopicName == "" {
		return nil, nil, nil
	}
	publisher, err := pubsub.New(ctx, cfg.PubSub.ProjectID, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	return publisher, func() {
		if cerr := publisher.Close(); cerr != nil {
			logger.Warn("Failed to close pubsub publisher", zap.Error(cerr))
		}
	}, nil
}
