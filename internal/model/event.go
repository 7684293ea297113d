package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ValueKind tags the variant held by an EventValue.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueString
	ValueNumber
)

// EventValue is the optional value attached to a logged event: absent, a string or a number.
type EventValue struct {
	kind ValueKind
	str  string
	num  float64
}

// NoValue is the absent event value.
var NoValue = EventValue{}

func StringValue(s string) EventValue  { return EventValue{kind: ValueString, str: s} }
func NumberValue(n float64) EventValue { return EventValue{kind: ValueNumber, num: n} }

func (v EventValue) Kind() ValueKind { return v.kind }
func (v EventValue) IsNone() bool    { return v.kind == ValueNone }

// String returns the string form: the string itself, the decimal number, or "".
func (v EventValue) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// Number returns the numeric value and whether the value is a number.
func (v EventValue) Number() (float64, bool) {
	return v.num, v.kind == ValueNumber
}

func (v EventValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

func (v *EventValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = NoValue
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("event value must be a string or a number: %w", err)
		}
		*v = NumberValue(n)
	}
	return nil
}

// Event is a single analytics record handed to the log queue.
type Event struct {
	EventName          string              `json:"eventName"`
	User               User                `json:"user"`
	Value              EventValue          `json:"value"`
	Metadata           map[string]any      `json:"metadata,omitempty"`
	SecondaryExposures []SecondaryExposure `json:"secondaryExposures,omitempty"`
	Time               time.Time           `json:"time"`
}
