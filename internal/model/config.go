package model

import (
	"encoding/json"
)

// DynamicConfig is the value returned for a config or experiment check.
// It is immutable once built; Value returns a copy.
type DynamicConfig struct {
	name   string
	value  map[string]any
	ruleID string
}

// NewDynamicConfig builds a config. A nil value becomes an empty object.
func NewDynamicConfig(name string, value map[string]any, ruleID string) DynamicConfig {
	if value == nil {
		value = map[string]any{}
	}
	return DynamicConfig{name: name, value: copyMap(value), ruleID: ruleID}
}

func (c DynamicConfig) Name() string   { return c.name }
func (c DynamicConfig) RuleID() string { return c.ruleID }

// Value returns a deep copy of the config parameters.
func (c DynamicConfig) Value() map[string]any {
	if c.value == nil {
		return map[string]any{}
	}
	return copyMap(c.value)
}

// Get returns the parameter or fallback when it is missing.
func (c DynamicConfig) Get(key string, fallback any) any {
	if v, ok := c.value[key]; ok && v != nil {
		return copyValue(v)
	}
	return fallback
}

func (c DynamicConfig) GetString(key, fallback string) string {
	return asString(c.value[key], fallback)
}

func (c DynamicConfig) GetNumber(key string, fallback float64) float64 {
	return asNumber(c.value[key], fallback)
}

func (c DynamicConfig) GetBool(key string, fallback bool) bool {
	return asBool(c.value[key], fallback)
}

// MarshalJSON encodes the config as {name, value, rule_id}.
func (c DynamicConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name   string         `json:"name"`
		Value  map[string]any `json:"value"`
		RuleID string         `json:"rule_id"`
	}{c.name, c.Value(), c.ruleID})
}

func asString(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func asBool(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func asNumber(v any, fallback float64) float64 {
	if n, ok := toNumber(v); ok {
		return n
	}
	return fallback
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
