package model

import (
	"encoding/json"
	"testing"
)

func TestUser_Identifiable(t *testing.T) {
	tests := []struct {
		name string
		user User
		want bool
	}{
		{name: "empty user", user: User{}, want: false},
		{name: "user id", user: User{UserID: "u1"}, want: true},
		{name: "custom id", user: User{CustomIDs: map[string]string{"companyID": "c1"}}, want: true},
		{name: "empty custom id", user: User{CustomIDs: map[string]string{"companyID": ""}}, want: false},
		{name: "only email", user: User{Email: "a@example.com"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.Identifiable(); got != tt.want {
				t.Errorf("Identifiable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_UnitID(t *testing.T) {
	u := User{CustomIDs: map[string]string{"b": "second", "a": "first"}}
	if got := u.UnitID(); got != "first" {
		t.Errorf("Expected unit id 'first', got %q", got)
	}
	u.UserID = "user-1"
	if got := u.UnitID(); got != "user-1" {
		t.Errorf("Expected unit id 'user-1', got %q", got)
	}
}

func TestUser_CloneDoesNotShareMaps(t *testing.T) {
	u := User{UserID: "u1", Custom: map[string]any{"plan": "free"}}
	c := u.Clone()
	c.Custom["plan"] = "pro"

	if u.Custom["plan"] != "free" {
		t.Errorf("Expected original custom to be untouched, got %v", u.Custom["plan"])
	}
}

func TestUser_WithoutPrivateAttributes(t *testing.T) {
	u := User{UserID: "u1", PrivateAttributes: map[string]any{"ssn": "123"}}
	c := u.WithoutPrivateAttributes()
	if c.PrivateAttributes != nil {
		t.Errorf("Expected private attributes to be removed, got %v", c.PrivateAttributes)
	}
	if u.PrivateAttributes == nil {
		t.Error("Expected original private attributes to be kept")
	}
}

func TestDynamicConfig_Getters(t *testing.T) {
	cfg := NewDynamicConfig("cfg", map[string]any{"color": "blue", "size": 10, "on": true}, "rule-1")

	if cfg.GetString("color", "red") != "blue" {
		t.Error("Expected color 'blue'")
	}
	if cfg.GetNumber("size", 0) != 10 {
		t.Errorf("Expected size 10, got %v", cfg.GetNumber("size", 0))
	}
	if !cfg.GetBool("on", false) {
		t.Error("Expected on=true")
	}
	if cfg.GetString("missing", "fallback") != "fallback" {
		t.Error("Expected fallback for missing key")
	}
	if cfg.GetString("size", "fallback") != "fallback" {
		t.Error("Expected fallback for wrong type")
	}

	v := cfg.Value()
	v["color"] = "green"
	if cfg.GetString("color", "") != "blue" {
		t.Error("Expected config to be immutable through Value()")
	}
}

func TestDynamicConfig_NilValue(t *testing.T) {
	cfg := NewDynamicConfig("empty", nil, "")
	if cfg.Value() == nil || len(cfg.Value()) != 0 {
		t.Errorf("Expected empty object, got %v", cfg.Value())
	}
}

func nestedParams() map[string]any {
	return map[string]any{
		"theme": map[string]any{"color": "blue"},
		"tiers": []any{"gold", map[string]any{"name": "silver"}},
	}
}

func TestDynamicConfig_ValueIsDeepCopy(t *testing.T) {
	src := nestedParams()
	cfg := NewDynamicConfig("checkout", src, "rule-1")

	src["theme"].(map[string]any)["color"] = "red"
	v := cfg.Value()
	v["theme"].(map[string]any)["color"] = "green"
	v["tiers"].([]any)[0] = "bronze"
	v["tiers"].([]any)[1].(map[string]any)["name"] = "copper"
	cfg.Get("theme", nil).(map[string]any)["color"] = "black"

	again := cfg.Value()
	if got := again["theme"].(map[string]any)["color"]; got != "blue" {
		t.Errorf("Expected nested color blue, got %v", got)
	}
	tiers := again["tiers"].([]any)
	if tiers[0] != "gold" {
		t.Errorf("Expected first tier gold, got %v", tiers[0])
	}
	if got := tiers[1].(map[string]any)["name"]; got != "silver" {
		t.Errorf("Expected nested tier silver, got %v", got)
	}
}

func TestLayer_ValueIsDeepCopy(t *testing.T) {
	src := nestedParams()
	l := NewLayer("pricing", src, "rule-1", nil)

	src["theme"].(map[string]any)["color"] = "red"
	l.Value()["theme"].(map[string]any)["color"] = "green"
	l.Get("tiers", nil).([]any)[0] = "bronze"

	v := l.Value()
	if got := v["theme"].(map[string]any)["color"]; got != "blue" {
		t.Errorf("Expected nested color blue, got %v", got)
	}
	if got := v["tiers"].([]any)[0]; got != "gold" {
		t.Errorf("Expected first tier gold, got %v", got)
	}
}

func TestLayer_ExposesOnEveryRead(t *testing.T) {
	var exposed []string
	layer := NewLayer("layer", map[string]any{"button": "red", "count": 3}, "rule", LayerExposerFunc(func(p string) {
		exposed = append(exposed, p)
	}))

	if layer.GetString("button", "") != "red" {
		t.Error("Expected button 'red'")
	}
	_ = layer.Get("button", nil)
	_ = layer.GetNumber("count", 0)

	if len(exposed) != 3 {
		t.Fatalf("Expected 3 exposures, got %d: %v", len(exposed), exposed)
	}
	if exposed[0] != "button" || exposed[1] != "button" || exposed[2] != "count" {
		t.Errorf("Unexpected exposure order: %v", exposed)
	}
}

func TestLayer_NoExposureForMissingOrMistyped(t *testing.T) {
	calls := 0
	layer := NewLayer("layer", map[string]any{"button": "red"}, "rule", LayerExposerFunc(func(string) { calls++ }))

	_ = layer.Get("missing", "x")
	_ = layer.GetBool("button", false)
	_ = layer.Value()
	_, _ = json.Marshal(layer)

	if calls != 0 {
		t.Errorf("Expected no exposures, got %d", calls)
	}
}

func TestEventValue_JSON(t *testing.T) {
	tests := []struct {
		name  string
		value EventValue
		want  string
	}{
		{name: "none", value: NoValue, want: "null"},
		{name: "string", value: StringValue("abc"), want: `"abc"`},
		{name: "number", value: NumberValue(12.5), want: "12.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.value)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, b)
			}

			var back EventValue
			if err := json.Unmarshal(b, &back); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if back != tt.value {
				t.Errorf("Expected %+v after decode, got %+v", tt.value, back)
			}
		})
	}
}

func TestEventValue_RejectsObjects(t *testing.T) {
	var v EventValue
	if err := json.Unmarshal([]byte(`{"a":1}`), &v); err == nil {
		t.Error("Expected error for object value")
	}
}

func TestExposure_Event(t *testing.T) {
	x := Exposure{
		Kind:     ExposureGate,
		User:     User{UserID: "u1"},
		Name:     "gate",
		RuleID:   "rule",
		Metadata: map[string]string{"gate": "gate", "gateValue": "true", "ruleID": "rule"},
	}
	ev := x.Event()

	if ev.EventName != GateExposureEvent {
		t.Errorf("Expected %s, got %s", GateExposureEvent, ev.EventName)
	}
	if ev.Metadata["gateValue"] != "true" {
		t.Errorf("Expected gateValue 'true', got %v", ev.Metadata["gateValue"])
	}
	if ev.SecondaryExposures == nil {
		t.Error("Expected empty, non-nil secondary exposures")
	}
}
