package sdk

import (
	"context"
	"fmt"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/sanitize"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/telemetry"
)

const (
	sourceLocal  = "local"
	sourceRemote = "remote"
)

// precheck validates a check call and returns the normalized user.
func (c *Client) precheck(user model.User, name string) (model.User, error) {
	if !c.IsReady() {
		return model.User{}, ErrNotInitialized
	}
	if name == "" {
		return model.User{}, ErrInvalidName
	}
	if !user.Identifiable() {
		return model.User{}, ErrUnidentifiableUser
	}
	return sanitize.NormalizeUser(user, c.opts.Environment), nil
}

// CheckGate returns the value of a gate for user.
//
// Gates the local ruleset cannot decide are checked remotely. Unlike configs
// and layers, a failed remote check is returned as an error wrapping
// ErrRemoteEvaluation. Remote results log no exposure here.
func (c *Client) CheckGate(ctx context.Context, user model.User, gate string) (bool, error) {
	u, err := c.precheck(user, gate)
	if err != nil {
		return false, err
	}

	v := c.evaluator.CheckGate(u, gate)
	if v == nil {
		v = &model.Verdict{}
	}
	if !v.FetchFromServer {
		c.emitter.Gate(u, gate, v.Value, v.RuleID, v.SecondaryExposures)
		telemetry.Evaluations.WithLabelValues("gate", sourceLocal).Inc()
		return v.Value, nil
	}

	telemetry.Evaluations.WithLabelValues("gate", sourceRemote).Inc()
	if c.remote == nil {
		telemetry.FallbackErrors.WithLabelValues("gate").Inc()
		return false, fmt.Errorf("%w: %w", ErrRemoteEvaluation, ErrNoTransport)
	}
	value, err := c.remote.CheckGate(ctx, u, gate)
	if err != nil {
		telemetry.FallbackErrors.WithLabelValues("gate").Inc()
		return false, fmt.Errorf("%w: %w", ErrRemoteEvaluation, err)
	}
	return value, nil
}

// GetConfig returns a dynamic config for user. Once the call passes
// validation it always returns a config: a failed remote check degrades to
// an empty config named after the request.
func (c *Client) GetConfig(ctx context.Context, user model.User, config string) (model.DynamicConfig, error) {
	u, err := c.precheck(user, config)
	if err != nil {
		return model.DynamicConfig{}, err
	}

	v := c.evaluator.GetConfig(u, config)
	if v == nil {
		v = &model.Verdict{}
	}
	if !v.FetchFromServer {
		c.emitter.Config(u, config, v.RuleID, v.SecondaryExposures)
		telemetry.Evaluations.WithLabelValues("config", sourceLocal).Inc()
		return model.NewDynamicConfig(config, v.JSONValue, v.RuleID), nil
	}

	telemetry.Evaluations.WithLabelValues("config", sourceRemote).Inc()
	return c.fetchConfig(ctx, u, config, "config"), nil
}

// GetExperiment is GetConfig for experiments.
func (c *Client) GetExperiment(ctx context.Context, user model.User, experiment string) (model.DynamicConfig, error) {
	return c.GetConfig(ctx, user, experiment)
}

// GetLayer returns a layer for user. Exposures are logged when parameters
// are read from the layer, not here.
//
// When the layer must be decided remotely its delegated experiment is
// fetched and returned under the layer's name, without exposure logging.
// A layer without a delegate, or a failed fetch, yields an empty layer.
func (c *Client) GetLayer(ctx context.Context, user model.User, layer string) (model.Layer, error) {
	u, err := c.precheck(user, layer)
	if err != nil {
		return model.Layer{}, err
	}

	v := c.evaluator.GetLayer(u, layer)
	if v == nil {
		v = &model.Verdict{}
	}
	if !v.FetchFromServer {
		telemetry.Evaluations.WithLabelValues("layer", sourceLocal).Inc()
		return model.NewLayer(layer, v.JSONValue, v.RuleID, c.emitter.Layer(u, layer, v)), nil
	}

	telemetry.Evaluations.WithLabelValues("layer", sourceRemote).Inc()
	if v.ConfigDelegate == "" {
		return model.NewLayer(layer, nil, "", nil), nil
	}
	cfg := c.fetchConfig(ctx, u, v.ConfigDelegate, "layer")
	return model.NewLayer(layer, cfg.Value(), cfg.RuleID(), nil), nil
}

func (c *Client) fetchConfig(ctx context.Context, u model.User, name, kind string) model.DynamicConfig {
	if c.remote == nil {
		telemetry.FallbackErrors.WithLabelValues(kind).Inc()
		c.logger.Warn().Str(kind, name).Err(ErrNoTransport).Msg("remote evaluation unavailable, serving empty value")
		return model.NewDynamicConfig(name, nil, "")
	}
	cfg, err := c.remote.GetConfig(ctx, u, name)
	if err != nil {
		telemetry.FallbackErrors.WithLabelValues(kind).Inc()
		c.logger.Warn().Str(kind, name).Err(err).Msg("remote evaluation failed, serving empty value")
		return model.NewDynamicConfig(name, nil, "")
	}
	return cfg
}
