package paperdash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"

	"github.com/jason-riddle/paperdash/internal/metrics"
)

// DefaultTimeout bounds every non-streaming request. Paper lookups can wait
// on server-side summarisation, hence the generous budget.
const DefaultTimeout = 300 * time.Second

// Client is a paperdash API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(client *Client) {
		if l != nil {
			client.logger = l
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(client *Client) {
		client.userAgent = ua
	}
}

// NewClient creates a new API client.
// baseURL is the dashboard API URL (e.g., "http://localhost:8080").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		userAgent: "paperdash-go",
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: gzhttp.Transport(http.DefaultTransport),
		},
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// buildURL constructs a URL for path with the given query parameters.
func (c *Client) buildURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// doRequest performs an HTTP request against path and decodes the JSON
// response into result.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	fullURL, err := c.buildURL(path, nil)
	if err != nil {
		return err
	}
	return c.doRequestWithURL(ctx, method, fullURL, body, result)
}

// doRequestWithURL performs an HTTP request using a full URL. body, when
// non-nil, is sent as JSON. A *string result receives the raw body; any
// other non-nil result is JSON-decoded.
func (c *Client) doRequestWithURL(ctx context.Context, method, fullURL string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	metrics.RequestsTotal.Add(1)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RequestErrorsTotal.Add(1)
		c.logger.DebugContext(ctx, "request failed", "method", method, "url", fullURL, "request_id", requestID, "error", err)
		return classifyDoError(err, c.httpClient.Timeout)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RequestErrorsTotal.Add(1)
		return classifyDoError(fmt.Errorf("read response: %w", err), c.httpClient.Timeout)
	}

	c.logger.DebugContext(ctx, "request",
		"method", method,
		"url", fullURL,
		"request_id", requestID,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RequestErrorsTotal.Add(1)
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    string(data),
		}
	}

	switch r := result.(type) {
	case nil:
	case *string:
		*r = string(data)
	default:
		if err := json.Unmarshal(data, result); err != nil {
			return &ParseError{Data: truncate(string(data), 256), Err: err}
		}
	}

	return nil
}
