// Package apiclient performs authenticated calls against the task backend.
//
// Every request carries a freshly read identity assertion when the host
// provides one; without it the request is still sent and the backend decides.
// Calls are attempted exactly once and fail with *NetworkError, *ServerError
// or *DecodeError.
package apiclient

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

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lifeQuestClient/internal/identity"
)

const maxResponseBytes = 4 << 20

type Client struct {
	baseURL  string
	identity identity.Source
	http     *http.Client
	headers  http.Header
	limiter  *rate.Limiter
	metrics  *Metrics
	logger   *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithRateLimit throttles outbound calls. Callers wait for a token; they are
// never rejected locally.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, src identity.Source, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}
	if src == nil {
		src = identity.Anonymous{}
	}

	c := &Client{
		baseURL:  strings.TrimRight(u.String(), "/"),
		identity: src,
		http:     &http.Client{Timeout: 15 * time.Second},
		headers:  http.Header{},
		logger:   zap.NewNop(),
	}
	c.headers.Set("Content-Type", "application/json")
	c.headers.Set("Accept", "application/json")
	c.headers.Set("ngrok-skip-browser-warning", "true")

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request describes one API call. Route is the path template used for metric
// labels (e.g. "/user-tasks/{id}"); it defaults to Path.
type Request struct {
	Method string
	Path   string
	Route  string
	Query  url.Values
	Body   any
}

// Do sends req and decodes the JSON response into out (which may be nil).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	route := req.Route
	if route == "" {
		route = req.Path
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &NetworkError{Method: req.Method, Path: req.Path, Err: err}
		}
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.resolve(req.Path, req.Query), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range c.headers {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	c.attachIdentity(ctx, httpReq)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.observe(route, req.Method, "error", time.Since(start).Seconds())
		c.logger.Warn("api request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err))
		return &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	elapsed := time.Since(start)
	c.metrics.observe(route, req.Method, strconv.Itoa(resp.StatusCode), elapsed.Seconds())
	if err != nil {
		return &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}

	c.logger.Debug("api request",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", elapsed))

	if resp.StatusCode >= http.StatusBadRequest {
		return &ServerError{Status: resp.StatusCode, Message: errorMessage(data, resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &DecodeError{Path: req.Path, Err: errors.New("empty response body")}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Path: req.Path, Err: err}
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path, route string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Route: route, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path, route string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Route: route, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path, route string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Route: route, Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, path, route string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Route: route, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path, route string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Route: route}, nil)
}

func (c *Client) attachIdentity(ctx context.Context, r *http.Request) {
	a, ok := c.identity.Assertion(ctx)
	if !ok {
		c.logger.Debug("identity unavailable, sending request anonymously", zap.String("path", r.URL.Path))
		return
	}
	value, err := a.HeaderValue()
	if err != nil {
		c.logger.Warn("dropping identity header", zap.Error(err))
		return
	}
	r.Header.Set(identity.HeaderName, value)
}

func (c *Client) resolve(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// PathID escapes an entity id for use as a path segment.
func PathID(id string) string {
	return url.PathEscape(id)
}
