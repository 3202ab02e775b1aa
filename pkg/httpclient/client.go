// Package httpclient is the JSON-over-HTTP client used to reach the systems
// of record the engine integrates with.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	// ErrHTTPServerError is returned when the server keeps answering with a 5xx status.
	ErrHTTPServerError = errors.New("server error during HTTP request")
	// ErrBaseURLInvalid is returned when the client has no usable base URL.
	ErrBaseURLInvalid = errors.New("invalid base URL")
)

// StatusError carries a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}

	return msg
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode >= http.StatusInternalServerError {
		return ErrHTTPServerError
	}

	return nil
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError

	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

// RetryConfig bounds how often a request is attempted when the server fails
// with 5xx or the connection breaks.
type RetryConfig struct {
	Attempts     uint
	InitialDelay time.Duration
	MaxElapsed   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, InitialDelay: 200 * time.Millisecond, MaxElapsed: 10 * time.Second}
}

type Client struct {
	baseURL string
	http    *http.Client
	headers map[string]string
	retry   RetryConfig
	logger  *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client, for example with one that
// authenticates through OAuth2. Its transport gets traced as well.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		traced := *client
		traced.Transport = otelhttp.NewTransport(transportOf(client))
		c.http = &traced
	}
}

func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

func WithRetry(retry RetryConfig) Option {
	return func(c *Client) {
		c.retry = retry
	}
}

func New(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("%w: %q", ErrBaseURLInvalid, baseURL)
	}

	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		headers: map[string]string{},
		retry:   DefaultRetryConfig(),
		logger:  logger.With("module", "http_client", "base_url", baseURL),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http.Timeout == 0 {
		c.http.Timeout = timeout
	}

	return c, nil
}

// Do sends in as JSON (when non-nil) and decodes the response into out (when
// non-nil). 5xx responses and transport errors are retried with exponential
// backoff; 4xx responses are returned at once as *StatusError.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte

	if in != nil {
		var err error

		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	attempt := 0

	operation := func() ([]byte, error) {
		attempt++
		if attempt > 1 {
			c.logger.InfoContext(ctx, "retrying request", "method", method, "path", path, "attempt", attempt)
		}

		body, err := c.send(ctx, method, path, payload)
		if err == nil {
			return body, nil
		}

		if errors.Is(err, ErrHTTPServerError) || isTransportError(err) {
			return nil, err
		}

		return nil, backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retry.InitialDelay

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(max(c.retry.Attempts, 1)),
		backoff.WithMaxElapsedTime(c.retry.MaxElapsed))
	if err != nil {
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
	}

	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.DebugContext(ctx, "request completed", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	return data, nil
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "http request failed: " + e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

func isTransportError(err error) bool {
	var target *transportError

	return errors.As(err, &target) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func transportOf(client *http.Client) http.RoundTripper {
	if client.Transport != nil {
		return client.Transport
	}

	return http.DefaultTransport
}
