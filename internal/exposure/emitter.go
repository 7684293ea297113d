// Package exposure turns evaluation outcomes into exposure records and hands
// them to the log queue.
package exposure

import (
	"strconv"
	"time"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/telemetry"
)

// Queue accepts exposures without blocking. Implemented by logqueue.Queue.
type Queue interface {
	LogExposure(x model.Exposure)
}

// Emitter builds exposure records. It holds no per-call state.
type Emitter struct {
	queue Queue
	now   func() time.Time
}

// New creates an emitter. A nil queue makes every emit a no-op.
func New(q Queue) *Emitter {
	return &Emitter{queue: q, now: time.Now}
}

// Gate records that user saw gate with the given outcome.
func (e *Emitter) Gate(user model.User, gate string, value bool, ruleID string, secondary []model.SecondaryExposure) {
	e.emit(model.Exposure{
		Kind:   model.ExposureGate,
		User:   user,
		Name:   gate,
		RuleID: ruleID,
		Metadata: map[string]string{
			"gate":      gate,
			"gateValue": strconv.FormatBool(value),
			"ruleID":    ruleID,
		},
		SecondaryExposures: secondary,
	})
}

// Config records that user saw a dynamic config or experiment.
func (e *Emitter) Config(user model.User, config, ruleID string, secondary []model.SecondaryExposure) {
	e.emit(model.Exposure{
		Kind:   model.ExposureConfig,
		User:   user,
		Name:   config,
		RuleID: ruleID,
		Metadata: map[string]string{
			"config": config,
			"ruleID": ruleID,
		},
		SecondaryExposures: secondary,
	})
}

// Layer returns an exposer bound to user and verdict. Each parameter read
// through it emits one layer exposure; nothing is emitted until then.
func (e *Emitter) Layer(user model.User, layer string, verdict *model.Verdict) model.LayerExposer {
	return model.LayerExposerFunc(func(parameter string) {
		e.layerParameter(user, layer, verdict, parameter)
	})
}

func (e *Emitter) layerParameter(user model.User, layer string, verdict *model.Verdict, parameter string) {
	var (
		ruleID     string
		allocated  string
		secondary  []model.SecondaryExposure
		isExplicit = verdict.IsExplicitParameter(parameter)
	)
	if verdict != nil {
		ruleID = verdict.RuleID
		secondary = verdict.UndelegatedSecondaryExposures
		if isExplicit {
			allocated = verdict.ConfigDelegate
			secondary = verdict.SecondaryExposures
		}
	}

	e.emit(model.Exposure{
		Kind:   model.ExposureLayer,
		User:   user,
		Name:   layer,
		RuleID: ruleID,
		Metadata: map[string]string{
			"config":              layer,
			"ruleID":              ruleID,
			"allocatedExperiment": allocated,
			"parameterName":       parameter,
			"isExplicitParameter": strconv.FormatBool(isExplicit),
		},
		SecondaryExposures: secondary,
	})
}

func (e *Emitter) emit(x model.Exposure) {
	if e == nil || e.queue == nil {
		return
	}
	x.User = x.User.WithoutPrivateAttributes()
	if x.SecondaryExposures == nil {
		x.SecondaryExposures = []model.SecondaryExposure{}
	}
	x.Time = e.now()
	e.queue.LogExposure(x)
	telemetry.Exposures.WithLabelValues(string(x.Kind)).Inc()
}
