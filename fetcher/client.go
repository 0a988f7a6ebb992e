package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/scipunch/secfeed/model"
)

// MaxBodySize caps how much of a response body is read
const MaxBodySize = 4 << 20

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
}

// Getter performs one network read. Implementations must be safe for
// concurrent use.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// GetterFunc adapts a plain function to Getter
type GetterFunc func(ctx context.Context, url string) ([]byte, error)

func (f GetterFunc) Get(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Permanent reports whether retrying the request cannot help
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != http.StatusTooManyRequests
}

// Client is the HTTP Getter used by both strategies
type Client struct {
	http *http.Client
	next atomic.Uint32
}

// NewClient wraps hc, or a fresh http.Client when hc is nil. Timeouts come
// from the request context.
func NewClient(hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{http: hc}
}

func (c *Client) userAgent() string {
	n := c.next.Add(1) - 1
	return userAgents[int(n)%len(userAgents)]
}

// Get fetches url and returns at most MaxBodySize bytes of its body. Errors
// are *model.SourceError values classified as transport, rate_limited or
// cancelled.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, model.NewError(model.KindTransport, fmt.Errorf("failed to build request for %s with %w", url, err))
	}
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(fmt.Errorf("GET %s failed with %w", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodySize))
		return nil, model.NewError(model.KindRateLimited, &StatusError{Code: resp.StatusCode, URL: url})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodySize))
		return nil, model.NewError(model.KindTransport, &StatusError{Code: resp.StatusCode, URL: url})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to read body of %s with %w", url, err))
	}
	return body, nil
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return model.NewError(model.KindCancelled, err)
	}
	return model.NewError(model.KindTransport, err)
}
