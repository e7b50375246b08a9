// Package apiclient wraps every call to the storefront API: session cookies,
// CSRF token injection on mutating requests and error normalization.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mateoromerocontreras/django-bookstore/internal/csrf"
	"github.com/mateoromerocontreras/django-bookstore/internal/observability"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	defaultTimeout = 15 * time.Second

	// TokenPath is the endpoint that issues a CSRF token.
	TokenPath = "/csrf-token/"

	requestIDHeader = "X-Request-ID"
)

// Client talks to the storefront API rooted at a single base URL.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	cache            *csrf.Cache
	tokens           *csrf.Bootstrapper
	logger           *slog.Logger
	bootstrapTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Jar is replaced by
// the jar given to New when that jar is non-nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			clone := *hc
			c.httpClient = &clone
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithBootstrapTimeout bounds the shared CSRF bootstrap request.
func WithBootstrapTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.bootstrapTimeout = d
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for baseURL, e.g. "http://localhost:8000/api".
func New(baseURL string, jar http.CookieJar, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be an absolute http(s) url", baseURL)
	}

	c := &Client{
		baseURL:    base.String(),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if jar != nil {
		c.httpClient.Jar = jar
	}

	cookieURL := *base
	cookieURL.Path = strings.TrimRight(base.Path, "/") + "/"
	c.cache = csrf.NewCache(c.httpClient.Jar, &cookieURL)

	bopts := []csrf.BootstrapperOption{csrf.WithLogger(c.logger)}
	if c.bootstrapTimeout > 0 {
		bopts = append(bopts, csrf.WithTimeout(c.bootstrapTimeout))
	}
	c.tokens = csrf.NewBootstrapper(c.cache, c.fetchToken, bopts...)

	return c, nil
}

// BaseURL returns the resolved API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Jar returns the cookie jar shared by every request.
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// Tokens returns the CSRF token cache.
func (c *Client) Tokens() csrf.TokenReader {
	return c.cache
}

// EnsureToken makes sure a CSRF token is available, bootstrapping one if needed.
func (c *Client) EnsureToken(ctx context.Context) (string, error) {
	return c.tokens.EnsureToken(ctx)
}

// Do sends a request and decodes a successful JSON response into out when out
// is non-nil. body, when non-nil, is JSON encoded. path is relative to the
// base URL and may carry an encoded query string.
//
// The returned error is a *ServerRejectedError, *NetworkError or
// *ClientFaultError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	data, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ClientFaultError{Message: "Invalid response from server", Err: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) ([]byte, error) {
	start := time.Now()
	route := observability.RouteLabel(path)

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		observability.APIRequestsTotal.WithLabelValues(method, route, "client_fault").Inc()
		return nil, err
	}

	logger := c.logger.With(
		slog.String("request_id", req.Header.Get(requestIDHeader)),
		slog.String("method", method),
		slog.String("path", path),
	)

	if isMutating(method) {
		token, err := c.tokens.EnsureToken(ctx)
		if err != nil {
			logger.Warn("sending request without csrf token", slog.String("error", err.Error()))
		} else {
			req.Header.Set(csrf.HeaderName, token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.APIRequestsTotal.WithLabelValues(method, route, "network").Inc()
		logger.Debug("request failed", slog.String("error", err.Error()))
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.APIRequestsTotal.WithLabelValues(method, route, "network").Inc()
		return nil, &NetworkError{Method: method, Path: path, Err: fmt.Errorf("read response body: %w", err)}
	}

	status := strconv.Itoa(resp.StatusCode)
	observability.APIRequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())

	logger.Debug("request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		observability.APIRequestsTotal.WithLabelValues(method, route, "rejected").Inc()
		return nil, &ServerRejectedError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   parseErrorBody(data),
		}
	}

	observability.APIRequestsTotal.WithLabelValues(method, route, "ok").Inc()
	return data, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientFaultError{Message: "Could not encode request", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &ClientFaultError{Message: "Could not build request", Err: err}
	}

	requestID := observability.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	return req, nil
}

// fetchToken performs the bootstrap request. The server sets the cookie and
// usually echoes the token in the body.
func (c *Client) fetchToken(ctx context.Context) (string, error) {
	data, err := c.send(ctx, http.MethodGet, TokenPath, nil)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(data, "csrfToken").String(), nil
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
