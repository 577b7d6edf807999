// Package apiclient is the shared HTTP transport for the pantry clients. It
// owns the base URL, the identifying headers and the mapping of non-200
// responses onto the error classes in errors.go.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	HeaderClientType = "X-Client-Type"
	HeaderUserID     = "X-User-ID"

	defaultClientType = "mobile"
	maxErrorBody      = 64 << 10
)

// Identity supplies the X-User-ID header value once a session exists.
type Identity interface {
	UserID() (string, bool)
}

// RequestObserver is told about every completed request. status is 0 when
// the request failed before a response arrived.
type RequestObserver func(op string, status int, latency time.Duration, err error)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClientType sets the X-Client-Type header value.
func WithClientType(clientType string) Option {
	return func(c *Client) {
		if clientType != "" {
			c.clientType = clientType
		}
	}
}

// WithObserver registers a request observer.
func WithObserver(o RequestObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// Client sends requests to a single base origin.
type Client struct {
	baseURL    string
	httpClient *http.Client
	clientType string
	identity   Identity
	observer   RequestObserver
}

// New creates a Client for baseURL. identity may be nil for anonymous use.
func New(baseURL string, identity Identity, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: base URL %q", ErrInvalidURL, baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		clientType: defaultClientType,
		identity:   identity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured origin without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// NewRequest builds a request for an already-escaped path and sets the
// identifying headers.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	req.Header.Set(HeaderClientType, c.clientType)
	req.Header.Set("Accept", "application/json")
	if c.identity != nil {
		if userID, ok := c.identity.UserID(); ok {
			req.Header.Set(HeaderUserID, userID)
		}
	}
	return req, nil
}

// Do sends req and reports the outcome to the observer. The caller closes
// the response body.
func (c *Client) Do(op string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if c.observer != nil {
		c.observer(op, status, latency, err)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: failed to execute request: %w", op, err)
	}
	if status != http.StatusOK {
		log.Printf("%s: %s %s returned status %d", op, req.Method, req.URL.Path, status)
	}
	return resp, nil
}

// Get sends a GET to path.
func (c *Client) Get(ctx context.Context, op, path string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(op, req)
}

// Delete sends a DELETE to path.
func (c *Client) Delete(ctx context.Context, op, path string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(op, req)
}

// SendJSON marshals in and sends it with the given method.
func (c *Client) SendJSON(ctx context.Context, op, method, path string, in any) (*http.Response, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request body: %w", op, err)
	}

	req, err := c.NewRequest(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(op, req)
}

// DecodeJSON decodes a success body into out. Failures are ErrInvalidResponse.
func DecodeJSON(resp *http.Response, out any) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}
	return nil
}

// Drain discards the rest of a body so the connection can be reused.
func Drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
}

// errorBody is the structured error shape: {success: false, error: "..."}.
type errorBody struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

// NewStatusError reads a non-200 body. When it carries a structured error
// that message is used; otherwise fallback is used, and when fallback is
// empty the generic "server error <status>" text applies.
func NewStatusError(resp *http.Response, class error, fallback string) *StatusError {
	se := &StatusError{Status: resp.StatusCode, Class: class, Message: fallback}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return se
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil || body.Error == nil {
		return se
	}
	se.Message = *body.Error
	return se
}
