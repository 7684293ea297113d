// Package transport issues the JSON POST requests used for remote evaluation.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// maxResponseBodySize limits how much of a response body is read (1MB)
	maxResponseBodySize = 1 << 20

	// maxErrorBodySize limits how much of an error body is kept in StatusError
	maxErrorBodySize = 1024
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("transport closed")

// StatusError is returned when the remote service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// Response is a successful remote response whose body has already been read.
type Response struct {
	StatusCode int
	body       []byte
}

// NewResponse wraps a raw body. Mostly useful for fakes.
func NewResponse(statusCode int, body []byte) *Response {
	return &Response{StatusCode: statusCode, body: body}
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// HTTPTransport posts JSON bodies authenticated with the server secret.
type HTTPTransport struct {
	secret     string
	httpClient *http.Client
	closed     int32
	now        func() time.Time
}

// New creates a transport. Outgoing requests are traced through otelhttp.
func New(secret string) *HTTPTransport {
	return &HTTPTransport{
		secret: secret,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
}

// Dispatch posts body as JSON to url and reads the response.
// A positive timeout bounds the whole call, in addition to ctx.
func (t *HTTPTransport) Dispatch(ctx context.Context, url string, body any, timeout time.Duration) (*Response, error) {
	if atomic.LoadInt32(&t.closed) == 1 {
		return nil, ErrClosed
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("STATSIG-API-KEY", t.secret)
	req.Header.Set("STATSIG-CLIENT-TIME", strconv.FormatInt(t.now().UnixMilli(), 10))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, body: bodyBytes}, nil
}

// Close refuses further dispatches and releases idle connections.
// Close is safe to call multiple times.
func (t *HTTPTransport) Close() error {
	if !atomic.CompareAndSwapInt32(&t.closed, 0, 1) {
		return nil
	}
	t.httpClient.CloseIdleConnections()
	return nil
}
