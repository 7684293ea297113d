package model

import (
	"encoding/json"
)

// LayerExposer emits the exposure for one layer parameter. It is bound to the
// verdict the layer was built from.
type LayerExposer interface {
	ExposeParameter(parameter string)
}

// LayerExposerFunc adapts a function to LayerExposer.
type LayerExposerFunc func(parameter string)

func (f LayerExposerFunc) ExposeParameter(parameter string) {
	if f != nil {
		f(parameter)
	}
}

// Layer groups experiment parameters. Reading a parameter that exists emits a
// layer exposure through the bound exposer; fetching the layer alone does not.
// Every read emits again.
type Layer struct {
	name    string
	value   map[string]any
	ruleID  string
	exposer LayerExposer
}

// NewLayer builds a layer. exposer may be nil, in which case reads are silent.
func NewLayer(name string, value map[string]any, ruleID string, exposer LayerExposer) Layer {
	if value == nil {
		value = map[string]any{}
	}
	return Layer{name: name, value: copyMap(value), ruleID: ruleID, exposer: exposer}
}

func (l Layer) Name() string   { return l.name }
func (l Layer) RuleID() string { return l.ruleID }

// Value returns a deep copy of all parameters without logging any exposure.
func (l Layer) Value() map[string]any {
	if l.value == nil {
		return map[string]any{}
	}
	return copyMap(l.value)
}

// Get returns the parameter, logging its exposure, or fallback when it is missing.
func (l Layer) Get(key string, fallback any) any {
	v, ok := l.value[key]
	if !ok || v == nil {
		return fallback
	}
	l.expose(key)
	return copyValue(v)
}

func (l Layer) GetString(key, fallback string) string {
	s, ok := l.value[key].(string)
	if !ok {
		return fallback
	}
	l.expose(key)
	return s
}

func (l Layer) GetBool(key string, fallback bool) bool {
	b, ok := l.value[key].(bool)
	if !ok {
		return fallback
	}
	l.expose(key)
	return b
}

func (l Layer) GetNumber(key string, fallback float64) float64 {
	n, ok := toNumber(l.value[key])
	if !ok {
		return fallback
	}
	l.expose(key)
	return n
}

func (l Layer) expose(key string) {
	if l.exposer != nil {
		l.exposer.ExposeParameter(key)
	}
}

// MarshalJSON encodes the layer as {name, value, rule_id}. It does not log exposures.
func (l Layer) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name   string         `json:"name"`
		Value  map[string]any `json:"value"`
		RuleID string         `json:"rule_id"`
	}{l.name, l.Value(), l.ruleID})
}
