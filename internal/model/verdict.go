package model

// SecondaryExposure references a gate that was checked while producing a verdict.
type SecondaryExposure struct {
	Gate      string `json:"gate" yaml:"gate"`
	GateValue string `json:"gateValue" yaml:"gateValue"`
	RuleID    string `json:"ruleID" yaml:"ruleID"`
}

// Verdict is the outcome of a local evaluation. The same shape is used for
// gates (Value), configs and layers (JSONValue).
//
// A verdict with FetchFromServer set is not authoritative: the caller must ask
// the remote service instead. ConfigDelegate is only set on layer verdicts whose
// rule delegated to an experiment.
type Verdict struct {
	Value                         bool                `json:"value"`
	JSONValue                     map[string]any      `json:"json_value,omitempty"`
	RuleID                        string              `json:"rule_id"`
	SecondaryExposures            []SecondaryExposure `json:"secondary_exposures,omitempty"`
	UndelegatedSecondaryExposures []SecondaryExposure `json:"undelegated_secondary_exposures,omitempty"`
	FetchFromServer               bool                `json:"fetch_from_server,omitempty"`
	ConfigDelegate                string              `json:"config_delegate,omitempty"`
	ExplicitParameters            []string            `json:"explicit_parameters,omitempty"`
}

// IsExplicitParameter reports whether param is owned by the delegated experiment.
func (v *Verdict) IsExplicitParameter(param string) bool {
	if v == nil {
		return false
	}
	for _, p := range v.ExplicitParameters {
		if p == param {
			return true
		}
	}
	return false
}
