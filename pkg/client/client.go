// Package client provides the HTTP client used to talk to the backend API and
// the upstream market data provider, with retry, offline short-circuiting,
// response caching, and upstream rate limit tracking.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/cryptomark/pkg/cache"
	"github.com/Sternrassler/cryptomark/pkg/logging"
	"github.com/Sternrassler/cryptomark/pkg/ratelimit"
)

// Prometheus metrics for HTTP requests.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptomark_http_requests_total",
		Help: "Total outbound HTTP requests by method and status",
	}, []string{"method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cryptomark_http_request_duration_seconds",
		Help:    "Outbound HTTP request duration in seconds by method",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})
)

// DefaultTimeout is the per-attempt request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultMaxBodySize caps how much of a response body is read.
const DefaultMaxBodySize = 32 << 20

// TokenSource supplies the bearer token attached to every request. An empty
// token means the request is sent unauthenticated.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

// Token returns the token itself.
func (s StaticToken) Token() string { return string(s) }

// Config holds the client configuration.
type Config struct {
	// BaseURL is prefixed to every request path (REQUIRED).
	BaseURL string

	// UserAgent header sent with every request (REQUIRED).
	UserAgent string

	// Timeout bounds each attempt, not the whole retried call.
	Timeout time.Duration

	// Retry is the default retry policy for every verb.
	Retry RetryConfig

	// Monitor short-circuits attempts while offline. Optional.
	Monitor StatusSource

	// Tokens supplies the bearer token. Optional.
	Tokens TokenSource

	// Cache stores GET responses in Redis. Optional.
	Cache *cache.Manager

	// Limiter tracks the upstream rate limit. Optional.
	Limiter *ratelimit.Tracker

	// MaxBodySize caps the bytes read from a response body. Larger bodies
	// fail the attempt. Defaults to DefaultMaxBodySize.
	MaxBodySize int64

	// HealthPath is the path probed by HealthCheck. Defaults to "/health".
	HealthPath string

	// HTTPClient overrides the transport (for testing).
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:    baseURL,
		UserAgent:  userAgent,
		Timeout:     DefaultTimeout,
		Retry:       DefaultRetryConfig(),
		MaxBodySize: DefaultMaxBodySize,
		HealthPath:  "/health",
	}
}

// Client is a JSON HTTP client. Every verb goes through Do with the
// configured retry policy.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	retrier    *Retrier
	logger     zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = "/health"
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		config:     cfg,
		retrier:    NewRetrier(cfg.Monitor),
		logger:     logging.NewLogger("http-client"),
	}, nil
}

// Request describes a single logical call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any

	// Retry overrides the client's retry policy when set.
	Retry *RetryConfig
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// FromCache is true when the body was served from the response cache.
	FromCache bool
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Timeout returns the per-attempt timeout. A nil client reports
// DefaultTimeout.
func (c *Client) Timeout() time.Duration {
	if c == nil {
		return DefaultTimeout
	}
	return c.config.Timeout
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// HealthCheck reports whether the health endpoint answers with a 2xx status.
// It makes a single attempt.
func (c *Client) HealthCheck(ctx context.Context) bool {
	noRetry := RetryConfig{Retries: 0, RetryCondition: func(error) bool { return false }}
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: c.config.HealthPath, Retry: &noRetry})
	if err != nil {
		c.logger.Debug().Err(err).Msg("Health check failed")
		return false
	}
	return true
}

// Do executes req with retry. GET requests consult the response cache first
// when one is configured. A fresh entry is served without a request, a stale
// one with validators turns the request into a conditional one.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	retry := c.config.Retry
	if req.Retry != nil {
		retry = *req.Retry
	}

	cacheable := c.config.Cache != nil && req.Method == http.MethodGet
	var (
		key    cache.Key
		cached *cache.Entry
	)
	if cacheable {
		key = cache.Key{Namespace: "http", Path: req.Path, Query: req.Query}
		entry, err := c.config.Cache.Get(ctx, key)
		switch {
		case err == nil && !entry.IsExpired():
			c.logger.Debug().Str("path", req.Path).Msg("Serving response from cache")
			return entryToResponse(entry), nil
		case err == nil:
			cached = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("path", req.Path).Msg("Cache get error")
		}
	}

	resp, err := Do(ctx, c.retrier, func(ctx context.Context) (*Response, error) {
		return c.attempt(ctx, req, payload, cached)
	}, retry)
	if err != nil {
		return nil, err
	}

	if !cacheable {
		return resp, nil
	}

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		cache.NotModifiedResponses.Inc()
		expires := cache.ExpiresFromHeader(resp.Header, time.Now())
		if err := c.config.Cache.UpdateTTL(ctx, key, expires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		cached.Expires = expires
		return entryToResponse(cached), nil
	}

	if resp.StatusCode == http.StatusOK {
		entry := cache.NewEntry(resp.StatusCode, resp.Header, resp.Body, time.Now())
		if err := c.config.Cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}
	return resp, nil
}

// attempt performs one HTTP round trip. Transport failures and non-success
// statuses are returned as *RequestError.
func (c *Client) attempt(ctx context.Context, req Request, payload []byte, cached *cache.Entry) (*Response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	if c.config.Limiter != nil {
		allowed, err := c.config.Limiter.ShouldAllowRequest(ctx)
		if err != nil {
			return nil, &RequestError{Kind: KindNetwork, Method: req.Method, URL: target, Message: "rate limit check", Err: err}
		}
		if !allowed {
			httpRequestsTotal.WithLabelValues(req.Method, "rate_limited").Inc()
			return nil, &RequestError{
				Kind:       KindHTTPStatus,
				StatusCode: http.StatusTooManyRequests,
				Method:     req.Method,
				URL:        target,
				Message:    "upstream cooldown active",
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.config.Tokens != nil {
		if token := c.config.Tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if cached != nil && cache.ShouldMakeConditionalRequest(cached) {
		cache.AddConditionalHeaders(httpReq, cached)
		cache.ConditionalRequestsSent.Inc()
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	httpRequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		kind := Classify(err)
		httpRequestsTotal.WithLabelValues(req.Method, string(kind)).Inc()
		c.logger.Debug().Err(err).Str("url", target).Str("kind", string(kind)).Msg("HTTP request failed")
		return nil, &RequestError{Kind: kind, Method: req.Method, URL: target, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, c.config.MaxBodySize+1))
	if err != nil {
		return nil, &RequestError{Kind: Classify(err), Method: req.Method, URL: target, Message: "read body", Err: err}
	}
	if int64(len(respBody)) > c.config.MaxBodySize {
		httpRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(httpResp.StatusCode)).Inc()
		return nil, &RequestError{
			Kind:       KindHTTPStatus,
			StatusCode: httpResp.StatusCode,
			Method:     req.Method,
			URL:        target,
			Message:    fmt.Sprintf("response body exceeds %d bytes", c.config.MaxBodySize),
			Header:     httpResp.Header,
		}
	}
	httpRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(httpResp.StatusCode)).Inc()

	if c.config.Limiter != nil {
		if err := c.config.Limiter.UpdateFromResponse(ctx, httpResp.StatusCode, httpResp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit state")
		}
	}

	if httpResp.StatusCode >= http.StatusBadRequest {
		c.logger.Debug().
			Str("url", target).
			Int("status", httpResp.StatusCode).
			Msg("HTTP request returned error status")
		return nil, &RequestError{
			Kind:       KindHTTPStatus,
			StatusCode: httpResp.StatusCode,
			Method:     req.Method,
			URL:        target,
			Message:    errorMessage(httpResp.Status, respBody),
			Header:     httpResp.Header.Clone(),
			Body:       respBody,
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

// errorMessage prefers the "error" (or "detail") field of a JSON error body
// and falls back to the status line.
func errorMessage(status string, body []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return status
}

func entryToResponse(entry *cache.Entry) *Response {
	return &Response{
		StatusCode: entry.StatusCode,
		Header:     entry.Headers.Clone(),
		Body:       entry.Data,
		FromCache:  true,
	}
}
