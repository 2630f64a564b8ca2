// Package httpds implements the http and https loader schemes. Requests go
// through a small client that retries transient failures with exponential
// backoff, honours Retry-After and stops waiting when the context ends.
package httpds

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Config configures the client. Zero values get defaults: a 30s timeout and
// backoff growing from 200ms up to 5s.
type Config struct {
	// Timeout applies to the whole request, body included.
	Timeout time.Duration
	// MaxRetries is the number of attempts after the first one.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// InsecureSkipVerify is ignored when Transport is set.
	InsecureSkipVerify bool
	// BaseHeaders go on every request; per-call headers replace them.
	BaseHeaders http.Header
	Transport   http.RoundTripper
}

// Client is an http.Client plus a retry policy.
type Client struct {
	hc      *http.Client
	retries int
	initial time.Duration
	ceiling time.Duration
	base    http.Header

	// wait blocks for a backoff delay; tests replace it.
	wait func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client, applying defaults for zero values.
func NewClient(cfg Config) *Client {
	c := &Client{
		retries: max(cfg.MaxRetries, 0),
		initial: cfg.InitialBackoff,
		ceiling: cfg.MaxBackoff,
		base:    cfg.BaseHeaders.Clone(),
		wait:    waitContext,
	}
	if c.initial <= 0 {
		c.initial = 200 * time.Millisecond
	}
	if c.ceiling <= 0 {
		c.ceiling = 5 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rt := cfg.Transport
	if rt == nil {
		rt = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}, //nolint:gosec // opt-in
		}
	}
	c.hc = &http.Client{Timeout: timeout, Transport: rt}
	return c
}

// Get issues a GET, retrying network errors and retryable statuses. A
// non-retryable status comes back as a response, not an error; the caller
// closes its body.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	if url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := c.request(ctx, url, headers)
		if err != nil {
			return nil, err
		}

		delay := backoffDuration(c.initial, attempt, c.ceiling)
		resp, err := c.hc.Do(req)
		if err != nil {
			lastErr = err
		} else if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		} else {
			if d, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
				delay = min(d, c.ceiling)
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("httpds: GET %s: retryable status %d", url, resp.StatusCode)
		}

		if attempt == c.retries {
			break
		}
		if err := c.wait(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) request(ctx context.Context, url string, headers http.Header) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpds: build request: %w", err)
	}
	for k, vs := range c.base {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// isRetryableStatus treats 429 and 5xx as transient.
func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// backoffDuration returns initial*2^attempt, capped at ceiling.
func backoffDuration(initial time.Duration, attempt int, ceiling time.Duration) time.Duration {
	d := initial << attempt
	if d <= 0 || d > ceiling {
		return ceiling
	}
	return d
}

// retryAfter parses the delay-seconds form of Retry-After.
func retryAfter(v string) (time.Duration, bool) {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func waitContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
