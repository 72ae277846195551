package audit

import (
	"encoding/json"
	"time"

	"github.com/platinummonkey/strata/pkg/classify"
)

// Source identifies the resolution tier that produced a configuration value.
type Source string

const (
	SourceCache       Source = "cache"
	SourceEnvironment Source = "environment"
	SourceGlobal      Source = "global"
	SourceEnvVar      Source = "env-var"
	SourceDefault     Source = "default"
	SourceError       Source = "error"
)

// SystemActor is recorded when no requesting actor identity is available.
const SystemActor = "system"

// Event records one configuration resolution attempt. SanitizedValue has
// already passed through the classifier's sanitizer; the raw value of a
// CONFIDENTIAL or INTERNAL key never appears in an event.
type Event struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	Actor          string        `json:"actor"`
	Key            string        `json:"key"`
	Tier           classify.Tier `json:"tier"`
	SanitizedValue string        `json:"sanitized_value"`
	Source         Source        `json:"source"`
	Success        bool          `json:"success"`
	Environment    string        `json:"environment,omitempty"`
	RequestID      string        `json:"request_id,omitempty"`
	Message        string        `json:"message,omitempty"`
}

// ToJSON serializes the event. Timestamps render as RFC 3339 / ISO-8601.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an event from JSON.
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}
