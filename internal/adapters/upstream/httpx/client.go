// Package httpx provides the resilient HTTP core shared by the upstream
// API clients. Vendors instantiate one Client each and layer pagination
// and auth on top
package httpx

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "shipledger/internal/platform/errors"
	"shipledger/internal/platform/logger"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultUA          = "shipledger"
	defaultMaxAttempts = 5
	defaultRetryBase   = 500 * time.Millisecond
	maxBackoff         = 30 * time.Second
	snippetLimit       = 200
	bodyLimit          = 1 << 20
)

// Options configures a Client
type Options struct {
	BaseURL   string
	UserAgent string
	Name      string // component tag for logs, defaults to "upstream"
	Timeout   time.Duration

	// Retry config for transient and rate limited responses
	MaxAttempts int
	RetryBase   time.Duration
	Jitter      bool

	// DisableRetries forces a single attempt for deterministic tests
	DisableRetries bool

	// Transport overrides the default transport, used by tests
	Transport http.RoundTripper
}

// Client issues requests with retries, backoff, and typed failures
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
	randf func() float64
}

// Request describes one upstream call
// Form, when non-nil, is sent urlencoded with a POST content type
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Form   url.Values
}

// Response carries the decoded-side inputs back to the vendor layer
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// New creates a Client with sane defaults
func New(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Name == "" {
		o.Name = "upstream"
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	h := &http.Client{Timeout: o.Timeout}
	if o.Transport != nil {
		h.Transport = o.Transport
	}
	return &Client{
		http:  h,
		opts:  o,
		log:   *logger.Named(o.Name),
		now:   time.Now,
		sleep: time.Sleep,
		randf: rand.Float64,
	}
}

// Do issues the request, retrying transient failures per the policy
// 429 and 5xx retry with exponential backoff capped at 30s; a 429
// Retry-After header overrides the computed delay; other 4xx fail
// immediately as permanent
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	target := c.opts.BaseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	attempt := 1
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		req, err := c.build(ctx, r, target)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "%s new request failed", c.opts.Name)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if !c.shouldRetry(attempt) {
				return nil, perr.WithUpstream(
					perr.Wrapf(err, perr.ErrorCodeUpstreamTransient, "%s request failed", c.opts.Name),
					perr.Upstream{Query: queryContext(r)},
				)
			}
			back := c.backoff(attempt)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempt).Msg("transport error retrying")
			c.sleep(back)
			attempt++
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
		_ = resp.Body.Close()

		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		c.log.Debug().
			Str("method", r.Method).
			Str("path", r.Path).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Dur("latency", lat).
			Dur("retry_after", retryAfter).
			Msg("upstream http response")

		if readErr != nil {
			if !c.shouldRetry(attempt) {
				return nil, perr.WithUpstream(
					perr.Wrapf(readErr, perr.ErrorCodeUpstreamTransient, "%s read body failed", c.opts.Name),
					perr.Upstream{StatusCode: resp.StatusCode, Query: queryContext(r)},
				)
			}
			c.sleep(c.backoff(attempt))
			attempt++
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			if !c.shouldRetry(attempt) {
				return nil, perr.WithUpstream(
					perr.UpstreamTransientf("%s status %d after %d attempts", c.opts.Name, resp.StatusCode, attempt),
					perr.Upstream{StatusCode: resp.StatusCode, Snippet: snippet(body), Query: queryContext(r)},
				)
			}
			wait := c.backoff(attempt)
			if resp.StatusCode == http.StatusTooManyRequests && retryAfter > 0 {
				wait = retryAfter
			}
			c.log.Warn().Int("status", resp.StatusCode).Dur("sleep", wait).Int("attempt", attempt).
				Msg("transient upstream status backing off")
			c.sleep(wait)
			attempt++
			continue

		default:
			// non-429 4xx and anything else unexpected, never retried
			return nil, perr.WithUpstream(
				perr.UpstreamPermanentf("%s status %d", c.opts.Name, resp.StatusCode),
				perr.Upstream{StatusCode: resp.StatusCode, Snippet: snippet(body), Query: queryContext(r)},
			)
		}
	}
}

func (c *Client) build(ctx context.Context, r Request, target string) (*http.Request, error) {
	var body io.Reader
	if r.Form != nil {
		body = strings.NewReader(r.Form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if r.Form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	return req, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	ms := int64(c.opts.RetryBase / time.Millisecond)
	ms = ms << uint(attempt-1)
	max := int64(maxBackoff / time.Millisecond)
	if ms > max {
		ms = max
	}
	d := time.Duration(ms) * time.Millisecond
	if c.opts.Jitter {
		d += time.Duration(c.randf() * float64(c.opts.RetryBase))
	}
	return d
}

func (c *Client) shouldRetry(attempt int) bool {
	if c.opts.DisableRetries {
		return false
	}
	return attempt < c.opts.MaxAttempts
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs := atoi(v); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	if s == "" {
		return 0
	}
	return n
}

// snippet bounds a response body for error context
func snippet(b []byte) string {
	if len(b) > snippetLimit {
		b = b[:snippetLimit]
	}
	return string(b)
}

// queryContext flattens request parameters for error context
// secret-bearing keys are redacted so the caller can log freely
func queryContext(r Request) map[string]string {
	out := map[string]string{"path": r.Path}
	for k, vs := range r.Query {
		if len(vs) == 0 {
			continue
		}
		if isSecretKey(k) {
			out[k] = "[redacted]"
			continue
		}
		out[k] = vs[0]
	}
	return out
}

func isSecretKey(k string) bool {
	k = strings.ToLower(k)
	return strings.Contains(k, "token") ||
		strings.Contains(k, "secret") ||
		strings.Contains(k, "password") ||
		strings.Contains(k, "key")
}
