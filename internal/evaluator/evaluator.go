// Package evaluator decides gates, dynamic configs and layers locally from
// an in-memory ruleset loaded out of the spec store.
//
// Specs carrying a targeting expression cannot be decided here; their
// verdicts ask the caller to fetch the result from the server.
package evaluator

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/rollout"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/telemetry"
)

// Rule ids reported for decisions that did not come from a variant.
const (
	RuleDisabled     = "disabled"
	RuleDefault      = "default"
	RuleRollout      = "rollout"
	RuleOverride     = "override"
	RulePrerequisite = "prerequisite"
)

// maxGateDepth bounds RequiresGate chains; deeper chains go to the server.
const maxGateDepth = 8

// Evaluator is safe for concurrent use. Evaluation reads an atomically
// swapped ruleset and never blocks on the store.
type Evaluator struct {
	store  store.Store
	env    string
	logger zerolog.Logger

	current atomic.Pointer[Ruleset]

	mu              sync.RWMutex
	gateOverrides   map[string]map[string]bool           // name -> user id ("" for everyone)
	configOverrides map[string]map[string]map[string]any // name -> user id ("" for everyone)

	syncInterval time.Duration
	cronMu       sync.Mutex
	cron         *cron.Cron
	closed       bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithSyncInterval reloads the ruleset from the store every d after Init.
func WithSyncInterval(d time.Duration) Option {
	return func(e *Evaluator) { e.syncInterval = d }
}

// New creates an evaluator for the specs of env.
func New(st store.Store, env string, logger zerolog.Logger, opts ...Option) *Evaluator {
	e := &Evaluator{
		store:           st,
		env:             env,
		logger:          logger.With().Str("component", "evaluator").Logger(),
		gateOverrides:   make(map[string]map[string]bool),
		configOverrides: make(map[string]map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init loads the ruleset and starts the sync job when one is configured.
func (e *Evaluator) Init(ctx context.Context) error {
	if err := e.Reload(ctx); err != nil {
		return err
	}
	if e.syncInterval <= 0 {
		return nil
	}

	e.cronMu.Lock()
	defer e.cronMu.Unlock()
	// A load that finishes after Close must not schedule anything.
	if e.closed || e.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", e.syncInterval), e.sync); err != nil {
		return fmt.Errorf("failed to schedule ruleset sync: %w", err)
	}
	c.Start()
	e.cron = c
	e.logger.Info().Dur("interval", e.syncInterval).Msg("ruleset sync scheduled")
	return nil
}

// Reload replaces the ruleset with the current content of the store.
func (e *Evaluator) Reload(ctx context.Context) error {
	specs, err := e.store.GetAllSpecs(ctx, e.env)
	if err != nil {
		return fmt.Errorf("failed to load specs: %w", err)
	}
	rs := BuildRuleset(specs)
	prev := e.current.Swap(rs)
	telemetry.RulesetSpecs.Set(float64(len(rs.Specs)))

	if prev == nil || prev.ETag != rs.ETag {
		e.logger.Info().Int("specs", len(rs.Specs)).Str("etag", rs.ETag).Msg("ruleset loaded")
	}
	return nil
}

func (e *Evaluator) sync() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Reload(ctx); err != nil {
		e.logger.Error().Err(err).Msg("ruleset sync failed")
	}
}

// Ruleset returns the current ruleset, or nil before the first load.
func (e *Evaluator) Ruleset() *Ruleset {
	return e.current.Load()
}

// CheckGate returns the verdict for a gate, or nil when the gate is unknown.
func (e *Evaluator) CheckGate(user model.User, name string) *model.Verdict {
	if v, ok := e.gateOverride(user, name); ok {
		return &model.Verdict{Value: v, RuleID: RuleOverride}
	}
	rs := e.current.Load()
	spec, ok := rs.lookup(name, store.KindGate)
	if !ok {
		return nil
	}
	return e.evalGate(rs, user, spec, 0)
}

// GetConfig returns the verdict for a dynamic config or experiment, or nil when unknown.
func (e *Evaluator) GetConfig(user model.User, name string) *model.Verdict {
	if v, ok := e.configOverride(user, name); ok {
		return &model.Verdict{Value: true, JSONValue: v, RuleID: RuleOverride}
	}
	rs := e.current.Load()
	spec, ok := rs.lookup(name, store.KindDynamicConfig)
	if !ok {
		return nil
	}
	return e.evalConfig(rs, user, spec)
}

// GetLayer returns the verdict for a layer, or nil when unknown.
func (e *Evaluator) GetLayer(user model.User, name string) *model.Verdict {
	rs := e.current.Load()
	spec, ok := rs.lookup(name, store.KindLayer)
	if !ok {
		return nil
	}
	return e.evalLayer(rs, user, spec)
}

// OverrideGate forces a gate value for userID, or for everyone when userID is empty.
func (e *Evaluator) OverrideGate(name string, value bool, userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gateOverrides[name] == nil {
		e.gateOverrides[name] = make(map[string]bool)
	}
	e.gateOverrides[name][userID] = value
}

// OverrideConfig forces a config value for userID, or for everyone when userID is empty.
func (e *Evaluator) OverrideConfig(name string, value map[string]any, userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.configOverrides[name] == nil {
		e.configOverrides[name] = make(map[string]map[string]any)
	}
	e.configOverrides[name][userID] = maps.Clone(value)
}

func (e *Evaluator) gateOverride(user model.User, name string) (bool, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	byUser := e.gateOverrides[name]
	if v, ok := byUser[user.UserID]; ok && user.UserID != "" {
		return v, true
	}
	v, ok := byUser[""]
	return v, ok
}

func (e *Evaluator) configOverride(user model.User, name string) (map[string]any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	byUser := e.configOverrides[name]
	if v, ok := byUser[user.UserID]; ok && user.UserID != "" {
		return maps.Clone(v), true
	}
	v, ok := byUser[""]
	return maps.Clone(v), ok
}

// prerequisite evaluates spec.RequiresGate. It returns the exposures it
// produced, whether the unit passed, and whether the server must decide.
func (e *Evaluator) prerequisite(rs *Ruleset, user model.User, spec store.Spec, depth int) ([]model.SecondaryExposure, bool, bool) {
	if spec.RequiresGate == "" {
		return nil, true, false
	}
	var gate *model.Verdict
	if v, ok := e.gateOverride(user, spec.RequiresGate); ok {
		gate = &model.Verdict{Value: v, RuleID: RuleOverride}
	} else if req, ok := rs.lookup(spec.RequiresGate, store.KindGate); ok {
		gate = e.evalGate(rs, user, req, depth+1)
	} else {
		gate = &model.Verdict{}
	}
	if gate.FetchFromServer {
		return nil, false, true
	}

	exposures := append([]model.SecondaryExposure{}, gate.SecondaryExposures...)
	exposures = append(exposures, model.SecondaryExposure{
		Gate:      spec.RequiresGate,
		GateValue: strconv.FormatBool(gate.Value),
		RuleID:    gate.RuleID,
	})
	return exposures, gate.Value, false
}

func (e *Evaluator) evalGate(rs *Ruleset, user model.User, spec store.Spec, depth int) *model.Verdict {
	if !spec.Enabled {
		return &model.Verdict{Value: false, RuleID: RuleDisabled}
	}
	if spec.Expression != nil || depth > maxGateDepth {
		return &model.Verdict{FetchFromServer: true}
	}

	secondary, passed, fetch := e.prerequisite(rs, user, spec, depth)
	if fetch {
		return &model.Verdict{FetchFromServer: true}
	}
	if !passed {
		return &model.Verdict{Value: false, RuleID: RulePrerequisite, SecondaryExposures: secondary}
	}

	in, err := rollout.Passes(user.UnitID(), spec.Name, spec.Rollout, spec.Salt)
	if err != nil {
		e.logger.Warn().Err(err).Str("gate", spec.Name).Msg("invalid rollout, gate closed")
	}
	ruleID := RuleDefault
	if in {
		ruleID = RuleRollout
	}
	return &model.Verdict{Value: in, RuleID: ruleID, SecondaryExposures: secondary}
}

func (e *Evaluator) evalConfig(rs *Ruleset, user model.User, spec store.Spec) *model.Verdict {
	defaults := maps.Clone(spec.Config)
	if defaults == nil {
		defaults = map[string]any{}
	}
	if !spec.Enabled {
		return &model.Verdict{JSONValue: defaults, RuleID: RuleDisabled}
	}
	if spec.Expression != nil {
		return &model.Verdict{FetchFromServer: true}
	}

	secondary, passed, fetch := e.prerequisite(rs, user, spec, 0)
	if fetch {
		return &model.Verdict{FetchFromServer: true}
	}
	if !passed {
		return &model.Verdict{JSONValue: defaults, RuleID: RulePrerequisite, SecondaryExposures: secondary}
	}

	variant, err := rollout.Pick(user.UnitID(), spec.Name, spec.Variants, spec.Salt)
	if err != nil {
		e.logger.Warn().Err(err).Str("config", spec.Name).Msg("invalid variants, serving defaults")
	}
	if variant == nil {
		return &model.Verdict{JSONValue: defaults, RuleID: RuleDefault, SecondaryExposures: secondary}
	}

	value := defaults
	maps.Copy(value, variant.Config)
	return &model.Verdict{Value: true, JSONValue: value, RuleID: variant.Name, SecondaryExposures: secondary}
}

func (e *Evaluator) evalLayer(rs *Ruleset, user model.User, spec store.Spec) *model.Verdict {
	defaults := maps.Clone(spec.Config)
	if defaults == nil {
		defaults = map[string]any{}
	}
	if !spec.Enabled {
		return &model.Verdict{JSONValue: defaults, RuleID: RuleDisabled}
	}
	if spec.Expression != nil {
		return &model.Verdict{FetchFromServer: true, ConfigDelegate: spec.Delegate}
	}

	undelegated, passed, fetch := e.prerequisite(rs, user, spec, 0)
	if fetch {
		return &model.Verdict{FetchFromServer: true, ConfigDelegate: spec.Delegate}
	}
	base := &model.Verdict{
		JSONValue:                     defaults,
		RuleID:                        RuleDefault,
		SecondaryExposures:            undelegated,
		UndelegatedSecondaryExposures: undelegated,
	}
	if !passed {
		base.RuleID = RulePrerequisite
		return base
	}
	if spec.Delegate == "" {
		return base
	}

	experiment, ok := rs.lookup(spec.Delegate, store.KindDynamicConfig)
	if !ok {
		return base
	}
	delegated := e.evalConfig(rs, user, experiment)
	if delegated.FetchFromServer {
		return &model.Verdict{FetchFromServer: true, ConfigDelegate: spec.Delegate}
	}
	if !delegated.Value {
		// unit is not allocated to the experiment
		return base
	}

	value := defaults
	maps.Copy(value, delegated.JSONValue)
	return &model.Verdict{
		Value:                         true,
		JSONValue:                     value,
		RuleID:                        delegated.RuleID,
		SecondaryExposures:            append(append([]model.SecondaryExposure{}, undelegated...), delegated.SecondaryExposures...),
		UndelegatedSecondaryExposures: undelegated,
		ConfigDelegate:                spec.Delegate,
		ExplicitParameters:            append([]string(nil), spec.ExplicitParameters...),
	}
}

// GetClientInitializeResponse evaluates every locally decidable spec for
// user. It returns nil before the first ruleset load.
func (e *Evaluator) GetClientInitializeResponse(user model.User) map[string]any {
	rs := e.current.Load()
	if rs == nil {
		return nil
	}

	gates := map[string]any{}
	configs := map[string]any{}
	layers := map[string]any{}

	for name, spec := range rs.Specs {
		switch spec.Kind {
		case store.KindGate:
			v := e.CheckGate(user, name)
			if v == nil || v.FetchFromServer {
				continue
			}
			gates[name] = map[string]any{
				"name":                name,
				"value":               v.Value,
				"rule_id":             v.RuleID,
				"secondary_exposures": nonNil(v.SecondaryExposures),
			}
		case store.KindDynamicConfig:
			v := e.GetConfig(user, name)
			if v == nil || v.FetchFromServer {
				continue
			}
			configs[name] = map[string]any{
				"name":                  name,
				"value":                 v.JSONValue,
				"rule_id":               v.RuleID,
				"group":                 v.RuleID,
				"is_user_in_experiment": v.Value,
				"secondary_exposures":   nonNil(v.SecondaryExposures),
			}
		case store.KindLayer:
			v := e.GetLayer(user, name)
			if v == nil || v.FetchFromServer {
				continue
			}
			layers[name] = map[string]any{
				"name":                            name,
				"value":                           v.JSONValue,
				"rule_id":                         v.RuleID,
				"allocated_experiment_name":       v.ConfigDelegate,
				"explicit_parameters":             nonNilStrings(v.ExplicitParameters),
				"secondary_exposures":             nonNil(v.SecondaryExposures),
				"undelegated_secondary_exposures": nonNil(v.UndelegatedSecondaryExposures),
			}
		}
	}

	return map[string]any{
		"feature_gates":   gates,
		"dynamic_configs": configs,
		"layer_configs":   layers,
		"has_updates":     true,
		"time":            rs.UpdatedAt.UnixMilli(),
		"hash":            rs.ETag,
	}
}

// Close stops the sync job. Close is safe to call multiple times.
func (e *Evaluator) Close() error {
	e.cronMu.Lock()
	if e.closed {
		e.cronMu.Unlock()
		return nil
	}
	e.closed = true
	c := e.cron
	e.cron = nil
	e.cronMu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	return nil
}

// syncing reports whether the sync job is scheduled.
func (e *Evaluator) syncing() bool {
	e.cronMu.Lock()
	defer e.cronMu.Unlock()
	return e.cron != nil
}

func nonNil(s []model.SecondaryExposure) []model.SecondaryExposure {
	if s == nil {
		return []model.SecondaryExposure{}
	}
	return s
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
