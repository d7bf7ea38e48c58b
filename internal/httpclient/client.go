// Package httpclient is the single gateway between the services and the
// ingestion/search API. It joins paths to the configured base address,
// attaches the session token, reports upload progress and classifies
// failures into *Error values.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenSource yields the current bearer token, "" when signed out.
// session.Store satisfies it.
type TokenSource interface {
	Get(ctx context.Context) (string, error)
}

// Doer is what the services need from a Client.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Request describes one API call. Path is relative to the base URL.
type Request struct {
	Method     string
	Path       string
	Body       *Body
	OnProgress ProgressFunc
}

// Response is a successful (2xx) answer with its body fully read.
type Response struct {
	Status    int
	Body      []byte
	RequestID string
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Client performs API calls against one base URL.
type Client struct {
	baseURL   string
	tokens    TokenSource
	http      *http.Client
	logger    *zap.Logger
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a whole-request timeout. Zero leaves it unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New returns a Client for baseURL that reads its token from tokens.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		tokens:    tokens,
		http:      &http.Client{},
		logger:    zap.NewNop(),
		userAgent: "docsearch",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the address requests are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends req. Every request carries an Authorization header: a bearer
// token when a session exists and an empty value otherwise. There is no
// retry; a failure is final for this call.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	requestID := uuid.NewString()

	token := ""
	if c.tokens != nil {
		t, err := c.tokens.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read session: %w", err)
		}
		token = t
	}

	var body io.Reader
	size := int64(0)
	if req.Body != nil {
		body = req.Body.Reader
		size = req.Body.Size
		if req.OnProgress != nil && size > 0 {
			body = newProgressReader(body, size, req.OnProgress)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if req.Body != nil {
		httpReq.ContentLength = size
		if req.Body.ContentType != "" {
			httpReq.Header.Set("Content-Type", req.Body.ContentType)
		}
	}
	httpReq.Header.Set("Authorization", bearer(token))
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, &Error{Kind: KindNetwork, RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.logger.Debug("request",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, RequestID: requestID, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:      KindAPI,
			Status:    resp.StatusCode,
			Detail:    parseDetail(data),
			RequestID: requestID,
		}
	}
	return &Response{Status: resp.StatusCode, Body: data, RequestID: requestID}, nil
}

func (c *Client) url(path string) string {
	if path == "" {
		return c.baseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func bearer(token string) string {
	if token == "" {
		return ""
	}
	return "Bearer " + token
}
