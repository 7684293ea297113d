package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a spec does not exist.
var ErrNotFound = errors.New("spec not found")

// Store defines the interface for ruleset persistence.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// GetAllSpecs retrieves all specs for the given environment.
	// Returns an empty slice if no specs are found.
	GetAllSpecs(ctx context.Context, env string) ([]Spec, error)

	// GetSpec retrieves a single spec by name and environment.
	// Returns ErrNotFound if the spec does not exist.
	GetSpec(ctx context.Context, name, env string) (*Spec, error)

	// UpsertSpec creates or updates a spec.
	UpsertSpec(ctx context.Context, params UpsertParams) error

	// DeleteSpec removes a spec by name and environment.
	// Returns no error if the spec doesn't exist (idempotent).
	DeleteSpec(ctx context.Context, name, env string) error

	// Close releases any resources held by the store.
	Close() error
}

// Kind is the entity a spec describes.
type Kind string

const (
	KindGate          Kind = "feature_gate"
	KindDynamicConfig Kind = "dynamic_config"
	KindLayer         Kind = "layer"
)

// Variant is one arm of an experiment.
type Variant struct {
	Name   string         `json:"name" yaml:"name"`
	Weight int            `json:"weight" yaml:"weight"` // Percentage weight (0-100)
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Spec is the stored definition of a gate, dynamic config or layer.
//
// Expression holds a targeting rule that is only evaluated by the remote
// service. RequiresGate names a gate the unit must pass first; its result is
// reported as a secondary exposure. Delegate and ExplicitParameters are only used by layers: the
// delegate names the experiment that owns ExplicitParameters.
type Spec struct {
	Name               string         `json:"name" yaml:"name"`
	Kind               Kind           `json:"kind" yaml:"kind"`
	Description        string         `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled            bool           `json:"enabled" yaml:"enabled"`
	Rollout            int32          `json:"rollout" yaml:"rollout"`
	Salt               string         `json:"salt,omitempty" yaml:"salt,omitempty"`
	Expression         *string        `json:"expression,omitempty" yaml:"expression,omitempty"`
	RequiresGate       string         `json:"requiresGate,omitempty" yaml:"requiresGate,omitempty"`
	Config             map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Variants           []Variant      `json:"variants,omitempty" yaml:"variants,omitempty"`
	Delegate           string         `json:"delegate,omitempty" yaml:"delegate,omitempty"`
	ExplicitParameters []string       `json:"explicitParameters,omitempty" yaml:"explicitParameters,omitempty"`
	Env                string         `json:"env" yaml:"env"`
	UpdatedAt          time.Time      `json:"updatedAt" yaml:"-"`
}

// UpsertParams contains the parameters for upserting a spec.
type UpsertParams struct {
	Name               string         `json:"name" yaml:"name"`
	Kind               Kind           `json:"kind" yaml:"kind"`
	Description        string         `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled            bool           `json:"enabled" yaml:"enabled"`
	Rollout            int32          `json:"rollout" yaml:"rollout"`
	Salt               string         `json:"salt,omitempty" yaml:"salt,omitempty"`
	Expression         *string        `json:"expression,omitempty" yaml:"expression,omitempty"`
	RequiresGate       string         `json:"requiresGate,omitempty" yaml:"requiresGate,omitempty"`
	Config             map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Variants           []Variant      `json:"variants,omitempty" yaml:"variants,omitempty"`
	Delegate           string         `json:"delegate,omitempty" yaml:"delegate,omitempty"`
	ExplicitParameters []string       `json:"explicitParameters,omitempty" yaml:"explicitParameters,omitempty"`
	Env                string         `json:"env" yaml:"env"`
}

func (p UpsertParams) toSpec(updatedAt time.Time) Spec {
	return Spec{
		Name:               p.Name,
		Kind:               p.Kind,
		Description:        p.Description,
		Enabled:            p.Enabled,
		Rollout:            p.Rollout,
		Salt:               p.Salt,
		Expression:         p.Expression,
		RequiresGate:       p.RequiresGate,
		Config:             p.Config,
		Variants:           p.Variants,
		Delegate:           p.Delegate,
		ExplicitParameters: p.ExplicitParameters,
		Env:                p.Env,
		UpdatedAt:          updatedAt,
	}
}
