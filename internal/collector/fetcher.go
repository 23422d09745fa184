package collector

import (
	"context"
	"errors"
	"fmt"
)

// Fetcher issues a GET against the market-data API and returns the raw body.
// path is relative to the API root and may carry a query string.
type Fetcher interface {
	Get(ctx context.Context, token, path string) ([]byte, error)
	Name() string
}

// ErrTransport marks requests that never got an HTTP response.
var ErrTransport = errors.New("upstream transport failure")

// UpstreamError is a non-2xx answer from the API.
type UpstreamError struct {
	Path   string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: status %d: %s", e.Path, e.Status, e.Body)
}
