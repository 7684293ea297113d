package model

import (
	"time"
)

// ExposureKind identifies which entity an exposure was recorded for.
type ExposureKind string

const (
	ExposureGate   ExposureKind = "gate"
	ExposureConfig ExposureKind = "config"
	ExposureLayer  ExposureKind = "layer"
)

// Exposure event names understood by the analytics pipeline.
const (
	GateExposureEvent   = "statsig::gate_exposure"
	ConfigExposureEvent = "statsig::config_exposure"
	LayerExposureEvent  = "statsig::layer_exposure"
)

// Exposure records which rule decided an evaluation for a user.
type Exposure struct {
	Kind               ExposureKind
	User               User
	Name               string
	RuleID             string
	Metadata           map[string]string
	SecondaryExposures []SecondaryExposure
	Time               time.Time
}

// EventName returns the analytics event name for the exposure kind.
func (x Exposure) EventName() string {
	switch x.Kind {
	case ExposureGate:
		return GateExposureEvent
	case ExposureLayer:
		return LayerExposureEvent
	default:
		return ConfigExposureEvent
	}
}

// Event converts the exposure into the log event shipped by the queue.
func (x Exposure) Event() Event {
	meta := make(map[string]any, len(x.Metadata))
	for k, v := range x.Metadata {
		meta[k] = v
	}
	secondary := x.SecondaryExposures
	if secondary == nil {
		secondary = []SecondaryExposure{}
	}
	return Event{
		EventName:          x.EventName(),
		User:               x.User,
		Metadata:           meta,
		SecondaryExposures: secondary,
		Time:               x.Time,
	}
}
