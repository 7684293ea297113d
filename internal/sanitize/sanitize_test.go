package sanitize

import (
	"strings"
	"testing"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
)

func TestNormalizeUser_TrimsLongUserID(t *testing.T) {
	user := model.User{UserID: strings.Repeat("u", 100)}

	got := NormalizeUser(user, nil)

	if len(got.UserID) != MaxUserIDLength {
		t.Errorf("Expected user id length %d, got %d", MaxUserIDLength, len(got.UserID))
	}
	if len(user.UserID) != 100 {
		t.Error("Expected caller's user to be left untouched")
	}
}

func TestNormalizeUser_ClearsCustomWhenTooLarge(t *testing.T) {
	user := model.User{
		UserID: "user-1",
		Email:  "a@example.com",
		Custom: map[string]any{"blob": strings.Repeat("x", 3000)},
	}

	got := NormalizeUser(user, nil)

	if got.UserID != "user-1" {
		t.Errorf("Expected user id to be kept, got %q", got.UserID)
	}
	if len(got.Custom) != 0 {
		t.Errorf("Expected empty custom, got %v", got.Custom)
	}
	if got.Email != "a@example.com" {
		t.Errorf("Expected email to survive, got %q", got.Email)
	}
	if len(user.Custom) != 1 {
		t.Error("Expected caller's custom map to be left untouched")
	}
}

func TestNormalizeUser_CollapsesToUserID(t *testing.T) {
	user := model.User{
		UserID:            strings.Repeat("u", 80),
		Custom:            map[string]any{"blob": strings.Repeat("x", 3000)},
		PrivateAttributes: map[string]any{"blob": strings.Repeat("y", 3000)},
		Country:           "US",
	}

	got := NormalizeUser(user, nil)

	want := model.User{UserID: strings.Repeat("u", MaxUserIDLength)}
	if got.UserID != want.UserID {
		t.Errorf("Expected trimmed user id, got %q", got.UserID)
	}
	if got.Custom != nil || got.PrivateAttributes != nil || got.Country != "" {
		t.Errorf("Expected user collapsed to its id, got %+v", got)
	}
}

func TestNormalizeUser_StampsEnvironment(t *testing.T) {
	env := map[string]string{"tier": "staging"}
	got := NormalizeUser(model.User{UserID: "u1"}, env)

	if got.Environment["tier"] != "staging" {
		t.Errorf("Expected tier 'staging', got %v", got.Environment)
	}

	env["tier"] = "production"
	if got.Environment["tier"] != "staging" {
		t.Error("Expected environment to be copied")
	}
}

func TestNormalizeUser_EnvironmentAfterCollapse(t *testing.T) {
	user := model.User{
		UserID:            "u1",
		PrivateAttributes: map[string]any{"blob": strings.Repeat("y", 3000)},
	}
	got := NormalizeUser(user, map[string]string{"tier": "production"})

	if got.Environment["tier"] != "production" {
		t.Errorf("Expected environment stamped after collapse, got %v", got.Environment)
	}
}

func TestEvent_TrimsNameAndValue(t *testing.T) {
	ev := model.Event{
		EventName: strings.Repeat("x", 100),
		Value:     model.StringValue(strings.Repeat("v", 100)),
	}

	got := Event(ev)

	if len(got.EventName) != 64 {
		t.Errorf("Expected name length 64, got %d", len(got.EventName))
	}
	if len(got.Value.String()) != 64 {
		t.Errorf("Expected value length 64, got %d", len(got.Value.String()))
	}
}

func TestEvent_NumberValueUntouched(t *testing.T) {
	got := Event(model.Event{EventName: "e", Value: model.NumberValue(123456789012345)})

	n, ok := got.Value.Number()
	if !ok || n != 123456789012345 {
		t.Errorf("Expected number value to be kept, got %v (%v)", n, ok)
	}
}

func TestEvent_OversizedMetadataReplaced(t *testing.T) {
	ev := model.Event{
		EventName: "e",
		Metadata:  map[string]any{"huge": strings.Repeat("m", 2000), "small": "ok"},
	}

	got := Event(ev)

	if len(got.Metadata) != 1 || got.Metadata["error"] != "not logged due to size too large" {
		t.Errorf("Expected drop sentinel, got %v", got.Metadata)
	}
	if _, ok := ev.Metadata["huge"]; !ok {
		t.Error("Expected caller's metadata to be left untouched")
	}
}

func TestEvent_SmallMetadataKept(t *testing.T) {
	got := Event(model.Event{EventName: "e", Metadata: map[string]any{"k": "v"}})
	if got.Metadata["k"] != "v" {
		t.Errorf("Expected metadata to be kept, got %v", got.Metadata)
	}
}

func TestSize(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want int
	}{
		{name: "nil", v: nil, want: 0},
		{name: "string", v: "hello", want: 5},
		{name: "multibyte string", v: "héllo", want: 5},
		{name: "int", v: 12345, want: 5},
		{name: "negative float", v: -1.5, want: 4},
		{name: "object", v: map[string]any{"a": 1}, want: 7},
		{name: "string as json would be longer", v: []string{"ab"}, want: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Size(tt.v); got != tt.want {
				t.Errorf("Size(%v) = %d, want %d", tt.v, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Errorf("Expected 'hé', got %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Expected 'abc', got %q", got)
	}
}
