package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FetchError reports an HTTP or network failure for one page. Status is zero
// when the request never produced a response.
type FetchError struct {
	Status int
	Path   string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Path, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Path, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// errorLabel classifies a fetch failure for metrics and the run summary.
func errorLabel(err error, statusCode int) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection"
	}

	switch statusCode {
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	if statusCode >= http.StatusInternalServerError {
		return "server_error"
	}

	return "other"
}

// retryable reports whether a failure class is transient at the network
// level. HTTP status failures are not retried; the remote answer is
// authoritative.
func retryable(label string) bool {
	return label == "timeout" || label == "connection"
}
