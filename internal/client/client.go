// Package client speaks the backend's REST surface through a fluent query
// vocabulary. Every call resolves to a Result: request-shaped failures are
// carried in Result.Error, never panicked or returned as Go errors, so
// callers branch uniformly on the {data, error} pair.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Second

// timeoutMessage preserves the user-facing wording of the original client.
const timeoutMessage = "Timeout: El servidor no responde."

// Error is a request-shaped failure.
type Error struct {
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// Result is the uniform outcome of every adapter call. Data holds decoded
// JSON (numbers as json.Number); exactly one of Data or Error is set except
// for bodyless successes, where both are nil.
type Result struct {
	Data  any
	Error *Error
}

// Client is the adapter entry point.
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	sessions SessionStore
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient substitutes the transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithSessionStore substitutes the session cache.
func WithSessionStore(s SessionStore) Option {
	return func(c *Client) { c.sessions = s }
}

// New constructs a client against the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		http:     &http.Client{},
		timeout:  defaultTimeout,
		sessions: NewMemorySessionStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// From starts a query against the named table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table, params: map[string]string{}}
}

// Auth returns the authentication namespace.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// Do issues a raw request against the backend, bypassing the builder. It is
// used for endpoints outside the table surface, such as uploads.
func (c *Client) Do(ctx context.Context, method, path string, body any) Result {
	return c.request(ctx, method, path, body)
}

func (c *Client) request(ctx context.Context, method, path string, body any) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Result{Error: &Error{Message: err.Error()}}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Result{Error: &Error{Message: err.Error()}}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Error: &Error{Message: timeoutMessage}}
		}
		return Result{Error: &Error{Message: err.Error()}}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Error: &Error{Message: timeoutMessage}}
		}
		return Result{Error: &Error{Message: err.Error()}}
	}

	var data any
	if len(text) > 0 {
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			snippet := string(text)
			if len(snippet) > 50 {
				snippet = snippet[:50] + "..."
			}
			return Result{Error: &Error{Message: fmt.Sprintf("Server Error (%d): %s", resp.StatusCode, snippet)}}
		}
	}

	if resp.StatusCode >= 400 {
		message := "Request failed"
		if m, ok := data.(map[string]any); ok {
			if msg, ok := m["error"].(string); ok && msg != "" {
				message = msg
			}
		}
		return Result{Error: &Error{Message: message}}
	}

	return Result{Data: data}
}
