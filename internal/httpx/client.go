// Package httpx implements the shared retrying HTTP client.
//
// Every source adapter and the dead-link auditor go through this client; no
// caller performs its own retry logic.
package httpx

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/metrics"
)

// RetryPolicy controls backoff behavior for retryable failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
}

// DefaultRetryPolicy returns the policy used when callers pass a zero value.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Timeout:     10 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	return p
}

// Response is the result of a successful fetch. Body is fully read and the
// underlying connection released before it is returned.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client issues HTTP requests with bounded exponential backoff and jitter.
type Client struct {
	httpClient *http.Client
	policy     RetryPolicy
	userAgent  string
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header applied to every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithTransport overrides the underlying transport (tests).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// New constructs a Client with the given policy.
func New(policy RetryPolicy, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		// Per-attempt timeouts are enforced with an explicit context timer,
		// so the inner client carries none of its own.
		httpClient: &http.Client{},
		policy:     policy.withDefaults(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url with the client's default policy.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, header, nil)
}

// Head issues a single HEAD probe without retries. Used by the dead-link
// auditor, where a transient failure must read as inconclusive rather than
// being retried into a verdict.
func (c *Client) Head(ctx context.Context, url string, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		timeout = c.policy.Timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build probe request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Do issues the request, retrying on 429/5xx and transport errors with full
// jitter backoff, honoring Retry-After on 429. Success covers 2xx and 3xx;
// any other 4xx returns immediately as a StatusError.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		resp, err := c.attempt(ctx, method, url, header, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return nil, err
		}
		if attempt == c.policy.MaxAttempts {
			break
		}

		delay := c.backoff(attempt)
		if errors.As(err, &statusErr) {
			if after, ok := statusErr.RetryAfter(); ok {
				delay = min(after, c.policy.MaxDelay)
			}
		}
		metrics.ObserveHTTPRetry(retryReason(err))
		c.logger.Debug("retrying request",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		if !sleep(ctx, delay) {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%s %s failed after %d attempts: %w", method, url, c.policy.MaxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       data,
		}, nil
	}
	return nil, &StatusError{Status: resp.StatusCode, Header: resp.Header}
}

func retryReason(err error) string {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return "transport"
	}
	if statusErr.Status == http.StatusTooManyRequests {
		return "rate_limited"
	}
	return "server_error"
}

// backoff returns baseDelay * 2^(attempt-1) plus uniform jitter in the same
// range, capped at MaxDelay.
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.policy.BaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.policy.MaxDelay) {
		delay = float64(c.policy.MaxDelay)
	}
	total := time.Duration(delay) + randomJitter(time.Duration(delay))
	return min(total, c.policy.MaxDelay)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// sleep blocks for delay using an explicit timer, returning false when the
// context finished first.
func sleep(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Status int
	Header http.Header
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// Retryable reports whether the status warrants another attempt.
func (e *StatusError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// RetryAfter returns the server-requested delay, when present and parseable.
func (e *StatusError) RetryAfter() (time.Duration, bool) {
	if e.Status != http.StatusTooManyRequests {
		return 0, false
	}
	raw := e.Header.Get("Retry-After")
	if raw == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// IsNotFound reports whether err is a definitive 404/410 status error.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.Status == http.StatusNotFound || statusErr.Status == http.StatusGone
}
