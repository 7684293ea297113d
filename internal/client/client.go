// Package client talks to a running flagship sidecar over HTTP.
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
	"time"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
)

// ErrNotFound is returned when the sidecar answers 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx answer from the sidecar.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// Client is an HTTP client for the sidecar API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GateResult is the answer of check_gate.
type GateResult struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

// ConfigResult is the answer of get_config and get_experiment.
type ConfigResult struct {
	Name   string         `json:"name"`
	Value  map[string]any `json:"value"`
	RuleID string         `json:"rule_id"`
}

// LayerResult is the answer of get_layer. Parameters holds the values read
// through the layer, each of which was exposed.
type LayerResult struct {
	Name       string         `json:"name"`
	Value      map[string]any `json:"value"`
	RuleID     string         `json:"rule_id"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Event is a custom event sent to log_event.
type Event struct {
	User      model.User       `json:"user"`
	EventName string           `json:"eventName"`
	Value     model.EventValue `json:"value"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

// CheckGate evaluates a gate for user.
func (c *Client) CheckGate(ctx context.Context, user model.User, gate string) (*GateResult, error) {
	var out GateResult
	body := map[string]any{"user": user, "gateName": gate}
	if err := c.do(ctx, http.MethodPost, "/v1/check_gate", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetConfig evaluates a dynamic config for user.
func (c *Client) GetConfig(ctx context.Context, user model.User, config string) (*ConfigResult, error) {
	var out ConfigResult
	body := map[string]any{"user": user, "configName": config}
	if err := c.do(ctx, http.MethodPost, "/v1/get_config", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLayer evaluates a layer for user and reads the listed parameters.
func (c *Client) GetLayer(ctx context.Context, user model.User, layer string, params []string) (*LayerResult, error) {
	var out LayerResult
	body := map[string]any{"user": user, "layerName": layer, "parameters": params}
	if err := c.do(ctx, http.MethodPost, "/v1/get_layer", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogEvent queues a custom event on the sidecar.
func (c *Client) LogEvent(ctx context.Context, event Event) error {
	return c.do(ctx, http.MethodPost, "/v1/log_event", nil, event, nil)
}

// Flush asks the sidecar to deliver queued events.
func (c *Client) Flush(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/flush", nil, struct{}{}, nil)
}

// OverrideGate pins a gate value, for userID only when it is non-empty.
func (c *Client) OverrideGate(ctx context.Context, gate string, value bool, userID string) error {
	body := map[string]any{"name": gate, "value": value, "userID": userID}
	return c.do(ctx, http.MethodPost, "/v1/admin/overrides/gate", nil, body, nil)
}

// ListSpecs retrieves all specs for an environment
func (c *Client) ListSpecs(ctx context.Context, env string) ([]store.Spec, error) {
	var specs []store.Spec
	if err := c.do(ctx, http.MethodGet, "/v1/admin/specs", envQuery(env), nil, &specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// GetSpec retrieves a single spec by name
func (c *Client) GetSpec(ctx context.Context, name, env string) (*store.Spec, error) {
	var spec store.Spec
	if err := c.do(ctx, http.MethodGet, "/v1/admin/specs/"+url.PathEscape(name), envQuery(env), nil, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// UpsertSpec creates or replaces a spec and returns the new ruleset ETag.
func (c *Client) UpsertSpec(ctx context.Context, params store.UpsertParams) (string, error) {
	var out struct {
		ETag string `json:"etag"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/admin/specs", nil, params, &out); err != nil {
		return "", err
	}
	return out.ETag, nil
}

// DeleteSpec deletes a spec
func (c *Client) DeleteSpec(ctx context.Context, name, env string) error {
	return c.do(ctx, http.MethodDelete, "/v1/admin/specs/"+url.PathEscape(name), envQuery(env), nil, nil)
}

func envQuery(env string) url.Values {
	if env == "" {
		return nil
	}
	return url.Values{"env": []string{env}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
