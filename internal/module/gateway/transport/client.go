// Package transport is the provider-facing HTTP client: base URL, auth, breaker and rate limiting.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ResponseError means the vendor answered with a non-2xx status.
type ResponseError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, truncate(string(e.Body), 256))
}

// NoResponseError means the request was issued but no response arrived.
type NoResponseError struct {
	Err error
}

func (e *NoResponseError) Error() string { return "no response: " + e.Err.Error() }

func (e *NoResponseError) Unwrap() error { return e.Err }

// Auth renders the authorization header value for a key.
type Auth func(key string) (header, value string)

// Bearer is "Authorization: Bearer <key>".
func Bearer(key string) (string, string) { return "Authorization", "Bearer " + key }

// KeyAuth is "Authorization: Key <key>".
func KeyAuth(key string) (string, string) { return "Authorization", "Key " + key }

// Header sends the key verbatim under a custom header.
func Header(name string) Auth {
	return func(key string) (string, string) { return name, key }
}

// Config configures a Client.
type Config struct {
	Name    string
	BaseURL string
	APIKey  string
	Auth    Auth

	HTTPClient *http.Client

	// RateLimit is requests per second; zero disables the limiter.
	RateLimit float64
	Burst     int

	// BreakerFailures trips the breaker after consecutive failures; zero disables it.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	OnBreakerChange func(name string, open bool)

	Logger *zap.Logger
}

// Client issues JSON requests against one provider.
type Client struct {
	name    string
	baseURL string
	apiKey  string
	auth    Auth
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*Response]
	logger  *zap.Logger
}

// Response is a buffered 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// New creates a client.
func New(cfg Config) *Client {
	c := &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		auth:    cfg.Auth,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}
	if c.auth == nil {
		c.auth = Bearer
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 5 * time.Minute}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.BreakerFailures > 0 {
		timeout := cfg.BreakerTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		threshold := cfg.BreakerFailures
		onChange := cfg.OnBreakerChange
		c.breaker = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !isUpstreamFailure(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("Provider circuit breaker changed state",
					zap.String("provider", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
				if onChange != nil {
					onChange(name, to == gobreaker.StateOpen)
				}
			},
		})
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// HasCredentials reports whether an API key is configured.
func (c *Client) HasCredentials() bool { return strings.TrimSpace(c.apiKey) != "" }

// URL resolves path against the base URL.
func (c *Client) URL(path string) string { return c.url(path) }

// PostJSON posts payload as JSON to path and returns the body.
func (c *Client) PostJSON(ctx context.Context, path string, payload any, headers ...http.Header) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	mergeHeaders(req, headers)

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetJSON issues a GET to path with optional query values.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, headers ...http.Header) ([]byte, error) {
	target := c.url(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	mergeHeaders(req, headers)

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Do sends req with auth, the limiter and the breaker applied, and buffers the response.
// The auth header is only added for requests against the base URL host.
func (c *Client) Do(ctx context.Context, req *http.Request) (*Response, error) {
	if c.apiKey != "" && c.sameHost(req.URL) {
		name, value := c.auth(c.apiKey)
		if req.Header.Get(name) == "" {
			req.Header.Set(name, value)
		}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// Wait refuses early when the next token lies past the deadline.
			return nil, fmt.Errorf("%s rate limit: %w: %v", c.name, context.DeadlineExceeded, err)
		}
	}
	if c.breaker == nil {
		return c.send(req)
	}
	return c.breaker.Execute(func() (*Response, error) {
		return c.send(req)
	})
}

func (c *Client) send(req *http.Request) (*Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NoResponseError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NoResponseError{Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("Provider request",
		zap.String("provider", c.name),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ResponseError{StatusCode: resp.StatusCode, Status: resp.Status, Body: body}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// url joins path onto the base URL. Absolute URLs are used as-is.
func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) sameHost(u *url.URL) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil || base.Host == "" {
		return true
	}
	return strings.EqualFold(base.Host, u.Host)
}

func mergeHeaders(req *http.Request, headers []http.Header) {
	for _, h := range headers {
		for k, vs := range h {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}
}

// isUpstreamFailure reports whether err counts against the breaker.
func isUpstreamFailure(err error) bool {
	var noResp *NoResponseError
	if errors.As(err, &noResp) {
		return true
	}
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
