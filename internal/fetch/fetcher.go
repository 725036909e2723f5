// Package fetch implements the page fetcher: a retrying, proxy-routed HTTP
// GET bounded by the global page-concurrency limiter.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/searchops/serp-harvester/internal/serp"
)

// Config controls fetch behavior.
type Config struct {
	// ProxyURL routes every request when set (http, https, or socks5 scheme,
	// credentials embedded). Empty means direct connections, used in tests.
	ProxyURL string
	// Retries is the total number of attempts per page.
	Retries int
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration
	// Timeout bounds a single request.
	Timeout time.Duration
}

// PageFetcher fetches result pages through the proxy with per-attempt retry.
// Every attempt holds a slot from the shared page limiter for its duration
// and uses a freshly randomized User-Agent plus its own transport, released
// before the next attempt starts.
type PageFetcher struct {
	cfg      Config
	proxyURL *url.URL
	pageSem  *semaphore.Weighted
	logger   *zap.Logger
}

// New constructs a PageFetcher. pageSem is the global page-concurrency
// limiter, shared across all queries and owned by the caller.
func New(cfg Config, pageSem *semaphore.Weighted, logger *zap.Logger) (*PageFetcher, error) {
	if cfg.Retries <= 0 {
		return nil, fmt.Errorf("retries must be > 0")
	}
	if pageSem == nil {
		return nil, fmt.Errorf("page limiter is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var proxyURL *url.URL
	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("proxy url must include scheme and host")
		}
		proxyURL = u
	}
	return &PageFetcher{
		cfg:      cfg,
		proxyURL: proxyURL,
		pageSem:  pageSem,
		logger:   logger,
	}, nil
}

// Fetch attempts to retrieve the URL up to cfg.Retries times, sleeping
// cfg.Backoff between attempts. Only a clean 200 body counts as success;
// exhausting all attempts resolves to an absent outcome, never an error.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) serp.FetchOutcome {
	for attempt := 1; attempt <= f.cfg.Retries; attempt++ {
		if attempt > 1 {
			serp.FetchRetriesTotal.Inc()
		}
		serp.FetchAttemptsTotal.Inc()

		body, err := f.attempt(ctx, rawURL)
		if err == nil {
			serp.PagesFetchedTotal.Inc()
			f.logger.Debug("page fetched",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Int("bytes", len(body)),
			)
			return serp.FetchOutcome{Body: body, OK: true}
		}

		f.logger.Error("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.cfg.Retries),
			zap.Error(err),
		)

		if attempt < f.cfg.Retries {
			if !sleepContext(ctx, f.cfg.Backoff) {
				break
			}
		}
	}

	serp.PagesGivenUpTotal.Inc()
	f.logger.Error("all fetch attempts failed",
		zap.String("url", rawURL),
		zap.Int("max_attempts", f.cfg.Retries),
	)
	return serp.FetchOutcome{}
}

// attempt performs one request. The limiter slot and the transport are both
// scoped to the attempt and released on every exit path, so neither is held
// across the backoff sleep.
func (f *PageFetcher) attempt(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.pageSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire page slot: %w", err)
	}
	defer f.pageSem.Release(1)

	transport := f.newTransport()
	defer transport.CloseIdleConnections()

	collector := colly.NewCollector(colly.UserAgent(randomUserAgent()))
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(transport)
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body      []byte
		responded bool
		fetchErr  error
	)
	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode != http.StatusOK {
			fetchErr = fmt.Errorf("unexpected status %d", r.StatusCode)
			return
		}
		// An empty 200 body is still a success.
		responded = true
		body = append([]byte{}, r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", rawURL, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if !responded {
		return nil, errors.New("no response received")
	}
	return body, nil
}

func (f *PageFetcher) newTransport() *http.Transport {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       30 * time.Second,
	}
	if f.proxyURL != nil {
		transport.Proxy = http.ProxyURL(f.proxyURL)
	}
	return transport
}

// sleepContext waits d or until the context finishes, reporting whether the
// full delay elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
