package sdk

import (
	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/sanitize"
)

// LogEvent records a custom event. It fails only when the client is not
// ready; an empty name is logged and ignored, and an unidentifiable user
// is warned about once but still logged.
func (c *Client) LogEvent(user model.User, name string, value model.EventValue, metadata map[string]any) error {
	return c.LogEventObject(model.Event{
		EventName: name,
		User:      user,
		Value:     value,
		Metadata:  metadata,
	})
}

// LogEventObject is LogEvent for a prepared event. A zero Time is set to now.
func (c *Client) LogEventObject(event model.Event) error {
	if !c.IsReady() {
		return ErrNotInitialized
	}
	if event.EventName == "" {
		c.logger.Warn().Msg("event name must be a non-empty string, event dropped")
		return nil
	}
	if !event.User.Identifiable() {
		c.warnUnidentifiable()
	}

	event.User = sanitize.NormalizeUser(event.User, c.opts.Environment).WithoutPrivateAttributes()
	event = sanitize.Event(event)
	if event.Time.IsZero() {
		event.Time = c.now()
	}
	if c.queue != nil {
		c.queue.Log(event)
	}
	return nil
}

// GetClientInitializeResponse returns every locally decidable value for
// user in the client bootstrap format, or nil when the evaluator has none.
func (c *Client) GetClientInitializeResponse(user model.User) (map[string]any, error) {
	if !c.IsReady() {
		return nil, ErrNotInitialized
	}
	if !user.Identifiable() {
		c.warnUnidentifiable()
	}
	return c.evaluator.GetClientInitializeResponse(sanitize.NormalizeUser(user, c.opts.Environment)), nil
}

// OverrideGate forces a gate value for userID, or for every user when
// userID is empty. Non-boolean values are logged and ignored.
func (c *Client) OverrideGate(gate string, value any, userID string) {
	b, ok := value.(bool)
	if !ok {
		c.logger.Warn().Str("gate", gate).Msgf("gate override value must be a boolean, got %T", value)
		return
	}
	c.evaluator.OverrideGate(gate, b, userID)
}

// OverrideConfig forces a config value for userID, or for every user when
// userID is empty. Values that are not JSON objects are logged and ignored.
func (c *Client) OverrideConfig(config string, value any, userID string) {
	m, ok := value.(map[string]any)
	if !ok {
		c.logger.Warn().Str("config", config).Msgf("config override value must be an object, got %T", value)
		return
	}
	c.evaluator.OverrideConfig(config, m, userID)
}
