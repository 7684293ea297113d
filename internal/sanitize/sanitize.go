// Package sanitize bounds the size of users and event payloads before they
// are evaluated or leave the process.
//
// Trimming is best-effort size reduction. A trimmed user may evaluate
// differently from the original; that is accepted in exchange for bounded
// payloads.
package sanitize

import (
	"encoding/json"
	"maps"
	"strconv"
	"unicode/utf8"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
)

const (
	// MaxUserIDLength is the maximum length of User.UserID
	MaxUserIDLength = 64
	// MaxUserSize is the maximum serialized size of a user
	MaxUserSize = 2048
	// MaxEventNameLength is the maximum length of an event name
	MaxEventNameLength = 64
	// MaxEventValueLength is the maximum length of a string event value
	MaxEventValueLength = 64
	// MaxMetadataSize is the maximum serialized size of event metadata
	MaxMetadataSize = 1024
)

// DroppedMetadata replaces event metadata that exceeds MaxMetadataSize.
func DroppedMetadata() map[string]any {
	return map[string]any{"error": "not logged due to size too large"}
}

// NormalizeUser returns a trimmed copy of user stamped with environment.
//
// Steps:
//  1. UserID is truncated to MaxUserIDLength.
//  2. If the serialized user is larger than MaxUserSize, Custom is cleared.
//  3. If it is still too large, the user is reduced to its UserID.
//  4. A non-empty environment is stamped onto the result.
func NormalizeUser(user model.User, environment map[string]string) model.User {
	u := user.Clone()
	u.UserID = Truncate(u.UserID, MaxUserIDLength)

	if Size(u) > MaxUserSize {
		u.Custom = map[string]any{}
		if Size(u) > MaxUserSize {
			u = model.User{UserID: u.UserID}
		}
	}

	if len(environment) > 0 {
		u.Environment = maps.Clone(environment)
	}
	return u
}

// Event returns a copy of ev with name, string value and metadata bounded.
// Oversized metadata is replaced wholesale by DroppedMetadata, never trimmed.
func Event(ev model.Event) model.Event {
	out := ev
	out.EventName = Truncate(ev.EventName, MaxEventNameLength)

	if ev.Value.Kind() == model.ValueString {
		out.Value = model.StringValue(Truncate(ev.Value.String(), MaxEventValueLength))
	}

	if ev.Metadata != nil && Size(ev.Metadata) > MaxMetadataSize {
		out.Metadata = DroppedMetadata()
	}
	return out
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// Size measures a value the way the limits above are expressed: strings by
// their length, numbers by the length of their decimal form, and anything else
// by the length of its JSON encoding. Values that fail to encode count as 0.
func Size(v any) int {
	switch val := v.(type) {
	case nil:
		return 0
	case string:
		return utf8.RuneCountInString(val)
	case int:
		return len(strconv.Itoa(val))
	case int32:
		return len(strconv.FormatInt(int64(val), 10))
	case int64:
		return len(strconv.FormatInt(val, 10))
	case float32:
		return len(strconv.FormatFloat(float64(val), 'f', -1, 32))
	case float64:
		return len(strconv.FormatFloat(val, 'f', -1, 64))
	case json.Number:
		return len(val.String())
	}

	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return utf8.RuneCount(b)
}
