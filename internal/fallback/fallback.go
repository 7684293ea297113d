// Package fallback asks the remote evaluation service for gate and config
// values the local evaluator cannot decide.
package fallback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/transport"
)

// DefaultTimeout bounds every remote evaluation call.
const DefaultTimeout = 5 * time.Second

// Dispatcher posts a JSON body to a URL. Implemented by transport.HTTPTransport.
type Dispatcher interface {
	Dispatch(ctx context.Context, url string, body any, timeout time.Duration) (*transport.Response, error)
}

// Metadata identifies this SDK instance to the remote service.
type Metadata struct {
	SDKType    string `json:"sdkType"`
	SDKVersion string `json:"sdkVersion"`
	SessionID  string `json:"sessionID"`
}

// NewMetadata returns metadata with a fresh session id.
func NewMetadata(sdkType, sdkVersion string) Metadata {
	return Metadata{SDKType: sdkType, SDKVersion: sdkVersion, SessionID: uuid.NewString()}
}

// Client performs remote gate and config checks. It holds no mutable state.
type Client struct {
	dispatcher Dispatcher
	api        string
	metadata   Metadata
	timeout    time.Duration
}

// New creates a client posting to the api base URL.
func New(d Dispatcher, api string, metadata Metadata) *Client {
	return &Client{
		dispatcher: d,
		api:        strings.TrimRight(api, "/"),
		metadata:   metadata,
		timeout:    DefaultTimeout,
	}
}

type checkGateRequest struct {
	User            model.User `json:"user"`
	GateName        string     `json:"gateName"`
	StatsigMetadata Metadata   `json:"statsigMetadata"`
}

type checkGateResponse struct {
	Value bool `json:"value"`
}

type getConfigRequest struct {
	User            model.User `json:"user"`
	ConfigName      string     `json:"configName"`
	StatsigMetadata Metadata   `json:"statsigMetadata"`
}

type getConfigResponse struct {
	Name   string         `json:"name"`
	Value  map[string]any `json:"value"`
	RuleID string         `json:"rule_id"`
}

var tracer = otel.Tracer("github.com/TimurManjosov/goflagship-server-sdk/internal/fallback")

// CheckGate returns the remote value of a gate. A response without a value is false.
func (c *Client) CheckGate(ctx context.Context, user model.User, gate string) (bool, error) {
	ctx, span := tracer.Start(ctx, "fallback.CheckGate")
	defer span.End()
	span.SetAttributes(attribute.String("gate", gate))

	resp, err := c.dispatcher.Dispatch(ctx, c.api+"/check_gate", checkGateRequest{
		User:            user,
		GateName:        gate,
		StatsigMetadata: c.metadata,
	}, c.timeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "check_gate failed")
		return false, fmt.Errorf("check_gate %q: %w", gate, err)
	}

	var out checkGateResponse
	if err := resp.JSON(&out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "check_gate decode failed")
		return false, fmt.Errorf("check_gate %q: %w", gate, err)
	}
	return out.Value, nil
}

// GetConfig returns the remote value of a dynamic config or experiment.
func (c *Client) GetConfig(ctx context.Context, user model.User, config string) (model.DynamicConfig, error) {
	ctx, span := tracer.Start(ctx, "fallback.GetConfig")
	defer span.End()
	span.SetAttributes(attribute.String("config", config))

	resp, err := c.dispatcher.Dispatch(ctx, c.api+"/get_config", getConfigRequest{
		User:            user,
		ConfigName:      config,
		StatsigMetadata: c.metadata,
	}, c.timeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get_config failed")
		return model.DynamicConfig{}, fmt.Errorf("get_config %q: %w", config, err)
	}

	var out getConfigResponse
	if err := resp.JSON(&out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get_config decode failed")
		return model.DynamicConfig{}, fmt.Errorf("get_config %q: %w", config, err)
	}
	name := out.Name
	if name == "" {
		name = config
	}
	return model.NewDynamicConfig(name, out.Value, out.RuleID), nil
}
