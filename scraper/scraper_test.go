package scraper

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-scrape-cycling/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test"
	cfg.MinRequestInterval = 0
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 5 * time.Millisecond
	return cfg
}

func newTestFetcher(t *testing.T, cfg *config.Config) (*Fetcher, *httpmock.MockTransport) {
	t.Helper()
	f, err := NewFetcher(cfg)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	transport := httpmock.NewMockTransport()
	f.transport = transport
	f.base.WithTransport(transport)
	return f, transport
}

func TestFetchReturnsBody(t *testing.T) {
	f, transport := newTestFetcher(t, testConfig())
	transport.RegisterResponder("GET", "http://example.test/race/paris-roubaix/2021/result",
		httpmock.NewStringResponder(http.StatusOK, "<html><body>ok</body></html>"))

	body, err := f.Fetch(context.Background(), "race/paris-roubaix/2021/result")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != "<html><body>ok</body></html>" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestFetchHTTPFailure(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2
	f, transport := newTestFetcher(t, cfg)
	url := "http://example.test/race/gone/2021/result"
	transport.RegisterResponder("GET", url, httpmock.NewStringResponder(http.StatusNotFound, ""))

	_, err := f.Fetch(context.Background(), "race/gone/2021/result")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", fetchErr.Status)
	}
	if fetchErr.Path != "race/gone/2021/result" {
		t.Fatalf("path = %q", fetchErr.Path)
	}

	// Status failures are authoritative and must not be retried.
	if calls := transport.GetCallCountInfo()["GET "+url]; calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestFetchRetriesConnectionErrors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2
	f, transport := newTestFetcher(t, cfg)

	url := "http://example.test/race/flaky/2021"
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	transport.RegisterResponder("GET", url, httpmock.NewErrorResponder(opErr))

	_, err := f.Fetch(context.Background(), "race/flaky/2021")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if calls := transport.GetCallCountInfo()["GET "+url]; calls != 3 {
		t.Fatalf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestFetchServesDuplicatesFromCache(t *testing.T) {
	f, transport := newTestFetcher(t, testConfig())
	url := "http://example.test/race/tour-de-france/2021"
	transport.RegisterResponder("GET", url, httpmock.NewStringResponder(http.StatusOK, "page"))

	for i := 0; i < 3; i++ {
		body, err := f.Fetch(context.Background(), "race/tour-de-france/2021")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if string(body) != "page" {
			t.Fatalf("fetch %d body = %q", i, body)
		}
	}

	if calls := transport.GetCallCountInfo()["GET "+url]; calls != 1 {
		t.Fatalf("calls = %d, want 1 (duplicates served from cache)", calls)
	}
}

func TestFetchHonoursMinInterval(t *testing.T) {
	cfg := testConfig()
	cfg.MinRequestInterval = 50 * time.Millisecond
	f, transport := newTestFetcher(t, cfg)

	transport.RegisterResponder("GET", `=~^http://example\.test/race/`,
		httpmock.NewStringResponder(http.StatusOK, "page"))

	start := time.Now()
	if _, err := f.Fetch(context.Background(), "race/a/2021"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := f.Fetch(context.Background(), "race/b/2021"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if elapsed := time.Since(start); elapsed < cfg.MinRequestInterval {
		t.Fatalf("two fetches completed in %v, want at least %v between requests", elapsed, cfg.MinRequestInterval)
	}
}

func TestFetchStopsOnCancelledContext(t *testing.T) {
	f, transport := newTestFetcher(t, testConfig())
	url := "http://example.test/race/a/2021"
	transport.RegisterResponder("GET", url, httpmock.NewStringResponder(http.StatusOK, "page"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "race/a/2021")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls := transport.GetCallCountInfo()["GET "+url]; calls != 0 {
		t.Fatalf("calls = %d, want 0 after cancellation", calls)
	}
}

func TestErrorLabel(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: errors.New("forbidden"), statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: errors.New("not found"), statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: errors.New("too many requests"), statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: errors.New("bad gateway"), statusCode: http.StatusBadGateway, expected: "server_error"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorLabel(tt.err, tt.statusCode); got != tt.expected {
				t.Fatalf("errorLabel(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestPhaseForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "races.php?year=2021&circuit=1&class=&filter=Filter", want: "index"},
		{path: "race/tour-de-france/2021", want: "stages"},
		{path: "race/tour-de-france/2021/stage-3/result", want: "result"},
		{path: "race/paris-roubaix/2021/result", want: "result"},
	}

	for _, tt := range tests {
		if got := phaseForPath(tt.path); got != tt.want {
			t.Fatalf("phaseForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
