package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single request including reading the body
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize caps response bodies; report listings and avatars are far smaller
	DefaultMaxBodySize = 20 * 1024 * 1024
)

// Request describes a single outbound call
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports whether the status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// TransportError wraps DNS, connection, TLS and timeout failures. It is never retried.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client issues single synchronous requests. TLS is chosen by net/http from the
// URL scheme. Unless WithFollowRedirects is given, redirects are returned to the
// caller instead of being followed.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	maxBodySize int64
	limiter     *rate.Limiter
	logger      arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRequestInterval enforces a minimum gap between requests. Zero disables pacing.
func WithRequestInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithFollowRedirects makes the client follow redirects, as needed for avatar
// URLs that bounce to a storage host
func WithFollowRedirects() ClientOption {
	return func(c *Client) {
		c.httpClient.CheckRedirect = nil
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its redirect policy is kept as given.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewDefaultHTTPClient creates an HTTP client with a timeout that does not follow redirects
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// NewClient creates a new Client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  NewDefaultHTTPClient(DefaultTimeout),
		maxBodySize: DefaultMaxBodySize,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		logger:      arbor.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Execute sends the request once and reads the whole body
func (c *Client) Execute(ctx context.Context, request *Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("request pacing interrupted: %w", err)
	}

	var body io.Reader
	if len(request.Body) > 0 {
		body = bytes.NewReader(request.Body)
	}

	req, err := http.NewRequestWithContext(ctx, request.Method, request.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for name, value := range request.Headers {
		req.Header.Set(name, value)
	}

	c.logger.Debug().
		Str("method", request.Method).
		Str("url", request.URL).
		Msg("HTTP request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: request.Method, URL: request.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, &TransportError{Method: request.Method, URL: request.URL, Err: err}
	}
	if int64(len(data)) > c.maxBodySize {
		return nil, &TransportError{
			Method: request.Method,
			URL:    request.URL,
			Err:    errors.New("response body exceeds size limit"),
		}
	}

	c.logger.Debug().
		Str("url", request.URL).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Msg("HTTP response")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
