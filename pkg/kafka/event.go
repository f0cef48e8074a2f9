package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TopicPrefix namespaces every topic this application owns.
const TopicPrefix = "fastsvelte"

// Topic constructs a fully-qualified topic name, e.g. "fastsvelte.user.registered".
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}

// Event is the JSON envelope written to every topic.
type Event struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Key           string            `json:"key"`
	Source        string            `json:"source"`
	OccurredAt    time.Time         `json:"occurred_at"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEvent creates an event with a generated id. key is used as the Kafka
// message key, so events sharing a key keep their relative order.
func NewEvent(eventType, key, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		Source:     source,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

// WithCorrelationID sets the correlation id carried from the originating request.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithMetadata adds a key-value pair to the event metadata.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Decode unmarshals the payload into target.
func (e *Event) Decode(target any) error {
	if err := json.Unmarshal(e.Data, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// UnmarshalEvent parses an envelope from a message value.
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, fmt.Errorf("event has no type")
	}
	return &event, nil
}
