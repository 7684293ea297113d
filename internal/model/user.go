// Package model holds the value types shared by the SDK core and its collaborators:
// users, evaluation verdicts, configs, layers, exposures and log events.
package model

import (
	"maps"
	"sort"
)

// User identifies who a gate, config or layer is evaluated for.
// At least one of UserID or a CustomIDs entry must be set for a check to run.
type User struct {
	UserID            string            `json:"userID,omitempty" yaml:"userID,omitempty"`
	Email             string            `json:"email,omitempty" yaml:"email,omitempty"`
	IP                string            `json:"ip,omitempty" yaml:"ip,omitempty"`
	UserAgent         string            `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	Country           string            `json:"country,omitempty" yaml:"country,omitempty"`
	Locale            string            `json:"locale,omitempty" yaml:"locale,omitempty"`
	AppVersion        string            `json:"appVersion,omitempty" yaml:"appVersion,omitempty"`
	Custom            map[string]any    `json:"custom,omitempty" yaml:"custom,omitempty"`
	PrivateAttributes map[string]any    `json:"privateAttributes,omitempty" yaml:"privateAttributes,omitempty"`
	CustomIDs         map[string]string `json:"customIDs,omitempty" yaml:"customIDs,omitempty"`
	Environment       map[string]string `json:"statsigEnvironment,omitempty" yaml:"environment,omitempty"`
}

// Identifiable reports whether the user carries a user ID or at least one custom ID.
func (u User) Identifiable() bool {
	if u.UserID != "" {
		return true
	}
	for _, id := range u.CustomIDs {
		if id != "" {
			return true
		}
	}
	return false
}

// UnitID returns the identifier used for bucketing: the user ID, or the
// first non-empty custom ID in key order.
func (u User) UnitID() string {
	if u.UserID != "" {
		return u.UserID
	}
	keys := make([]string, 0, len(u.CustomIDs))
	for k := range u.CustomIDs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if id := u.CustomIDs[k]; id != "" {
			return id
		}
	}
	return ""
}

// Clone returns a copy whose maps can be modified without touching u.
func (u User) Clone() User {
	c := u
	c.Custom = maps.Clone(u.Custom)
	c.PrivateAttributes = maps.Clone(u.PrivateAttributes)
	c.CustomIDs = maps.Clone(u.CustomIDs)
	c.Environment = maps.Clone(u.Environment)
	return c
}

// WithoutPrivateAttributes returns a copy suitable for logging.
func (u User) WithoutPrivateAttributes() User {
	c := u.Clone()
	c.PrivateAttributes = nil
	return c
}
