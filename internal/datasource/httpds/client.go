// Package httpds downloads machine-readable files over HTTP(S) with retry and
// exponential backoff. Hospitals publish their files on ordinary web servers
// that are often slow or flaky, so transient failures (network errors, 429,
// 5xx) are retried while everything else is returned to the caller as is.
package httpds

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
)

// DefaultUserAgent identifies the validator to file hosts.
const DefaultUserAgent = "hptvalidate/1 (+price transparency file validator)"

// Config configures the HTTP client.
//
// Zero values are given defaults:
//   - Timeout:        30s
//   - MaxRetries:     0 (single attempt)
//   - InitialBackoff: 200ms
//   - MaxBackoff:     5s
type Config struct {
	// Timeout bounds a whole request including reading the body. Large files
	// need a generous value.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the initial request.
	MaxRetries int

	// InitialBackoff is the wait before the first retry; each further retry
	// doubles it up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// BaseHeaders are added to every request; per-request headers win.
	BaseHeaders http.Header

	// Transport replaces the default transport. TLS settings from this
	// Config are not applied to a custom transport.
	Transport http.RoundTripper
}

// Client wraps an http.Client with retry and backoff behavior.
type Client struct {
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	baseHeaders    http.Header

	// wait blocks for the backoff; tests replace it along with now.
	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time
}

// NewClient constructs a Client from Config, applying defaults for zero values.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicitly configurable
			},
		}
	}

	hdr := http.Header{}
	hdr.Set("User-Agent", DefaultUserAgent)
	for k, vs := range cfg.BaseHeaders {
		hdr.Del(k)
		for _, v := range vs {
			hdr.Add(k, v)
		}
	}

	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		baseHeaders:    hdr,
		wait:           sleepWithContext,
		now:            time.Now,
	}
}

// StatusError is returned by Open when the final response is not 2xx.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: GET %s: %s", e.URL, e.Status)
}

// acceptMRF is sent by Open; hosts that negotiate content get the formats
// the validator reads.
const acceptMRF = "text/csv, application/json;q=0.9, */*;q=0.1"

// Do sends a bodiless request, retrying transient failures. A Retry-After
// header on a 429 or 503 replaces the computed backoff when it is longer,
// still capped at MaxBackoff. The returned response may carry any status
// that is not retryable; the caller must close its body.
func (c *Client) Do(ctx context.Context, method, url string, headers http.Header) (*http.Response, error) {
	if method == "" {
		return nil, errors.New("httpds: method must not be empty")
	}
	if url == "" {
		return nil, errors.New("httpds: url must not be empty")
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := c.newRequest(ctx, method, url, headers)
		if err != nil {
			return nil, err
		}

		delay := backoffDuration(c.initialBackoff, attempt, c.maxBackoff)
		resp, err := c.httpClient.Do(req)
		if err == nil && !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if err != nil {
			lastErr = err
		} else {
			if ra := retryAfter(resp.Header.Get("Retry-After"), c.now()); ra > delay {
				delay = min(ra, c.maxBackoff)
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("httpds: %s %s: retryable status %d", method, url, resp.StatusCode)
		}

		if attempt >= c.maxRetries {
			return nil, lastErr
		}
		log.Printf("httpds: url=%s attempt=%d retry_in=%s error=%v", url, attempt+1, delay, lastErr)
		if err := c.wait(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) newRequest(ctx context.Context, method, url string, headers http.Header) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpds: build request: %w", err)
	}
	req.Header = c.baseHeaders.Clone()
	for k, vs := range headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// Get is Do with GET.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, headers)
}

// Open GETs a machine-readable file and returns the 2xx response. Other
// statuses are reported as *StatusError.
func (c *Client) Open(ctx context.Context, url string) (*http.Response, error) {
	var hdr http.Header
	if c.baseHeaders.Get("Accept") == "" {
		hdr = http.Header{"Accept": {acceptMRF}}
	}
	resp, err := c.Get(ctx, url, hdr)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

// retryAfter parses a Retry-After value in seconds or as an HTTP date.
// Missing or malformed values yield zero.
func retryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// isRetryableStatus treats 429 and 5xx as transient.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration returns initial * 2^attempt clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt <= 0 {
		return min(initial, max)
	}
	d := initial << attempt
	if d > max || d <= 0 {
		return max
	}
	return d
}

// sleepWithContext waits for d or until ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
