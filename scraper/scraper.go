// Package scraper fetches pages from the statistics site with a global
// courtesy delay between requests.
package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-cycling/config"
)

// Fetcher retrieves pages by site-relative path. All fetches pass through a
// single rate gate so at most one request per MinRequestInterval reaches the
// host, no matter how callers are structured.
type Fetcher struct {
	cfg       *config.Config
	base      *colly.Collector
	transport http.RoundTripper
	limiter   *rate.Limiter
	cache     *lru.Cache[string, []byte]
	Metrics   *Metrics

	baseURL *url.URL
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	collector.WithTransport(transport)

	limit := rate.Inf
	if cfg.MinRequestInterval > 0 {
		limit = rate.Every(cfg.MinRequestInterval)
	}

	cache, err := lru.New[string, []byte](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("build page cache: %w", err)
	}

	return &Fetcher{
		cfg:       cfg,
		base:      collector,
		transport: transport,
		limiter:   rate.NewLimiter(limit, 1),
		cache:     cache,
		Metrics:   NewMetrics(),
		baseURL:   parsed,
	}, nil
}

// Fetch retrieves one page. Re-requests for a path already seen in this run
// are served from the cache without touching the host or the rate gate, so
// duplicate race listings cost nothing. Transient network failures are
// retried with exponential backoff; HTTP status failures are not.
func (f *Fetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if body, ok := f.cache.Get(path); ok {
		f.Metrics.IncCache("hit")
		return append([]byte(nil), body...), nil
	}
	f.Metrics.IncCache("miss")

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{Path: path, Err: err}
		}

		waitStart := time.Now()
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Path: path, Err: err}
		}
		f.Metrics.ObserveLimiterWait(time.Since(waitStart))

		body, status, err := f.get(path)
		f.Metrics.IncRequest(phaseForPath(path))
		if err == nil {
			f.cache.Add(path, body)
			return append([]byte(nil), body...), nil
		}

		label := errorLabel(err, status)
		f.Metrics.IncError(label)
		lastErr = &FetchError{Status: status, Path: path, Err: err}
		if attempt >= f.cfg.MaxRetries || !retryable(label) {
			return nil, lastErr
		}

		f.Metrics.IncRetries()
		if err := sleepCtx(ctx, f.backoff(attempt+1)); err != nil {
			return nil, lastErr
		}
	}
}

// get performs a single request using a throwaway clone of the base
// collector, the body and error captured through the collector hooks.
func (f *Fetcher) get(path string) ([]byte, int, error) {
	collector := f.base.Clone()
	collector.WithTransport(f.transport)
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		status   int
		fetchErr error
	)
	start := time.Now()
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := collector.Visit(f.absolute(path)); err != nil {
		fetchErr = err
	}
	collector.Wait()
	f.Metrics.ObserveDuration(time.Since(start))

	if fetchErr != nil {
		return nil, status, fetchErr
	}
	return body, status, nil
}

func (f *Fetcher) absolute(path string) string {
	return strings.TrimRight(f.baseURL.String(), "/") + "/" + strings.TrimLeft(path, "/")
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	base := f.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base * time.Duration(1<<(attempt-1))
	if max := f.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

// phaseForPath labels a request for metrics by the pipeline pass it serves.
func phaseForPath(path string) string {
	switch {
	case strings.HasPrefix(path, "races.php"):
		return "index"
	case strings.HasSuffix(path, "/result"):
		return "result"
	default:
		return "stages"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
