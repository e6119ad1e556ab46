package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "turn.completed").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used when reconstructing events
// off the wire.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// TurnCompleted is emitted after every finished assistant turn, feeding the
// offline audit consumer.
type TurnCompleted struct {
	SessionID      string
	Route          string
	Topic          string
	ResponseType   string
	ResolvedFields map[string]string
	OccurredAt     time.Time
}

func (e TurnCompleted) EventType() string {
	return "turn.completed"
}

func (e TurnCompleted) Payload() map[string]interface{} {
	fields := map[string]interface{}{}
	for k, v := range e.ResolvedFields {
		fields[k] = v
	}
	return map[string]interface{}{
		"session_id":      e.SessionID,
		"route":           e.Route,
		"topic":           e.Topic,
		"response_type":   e.ResponseType,
		"resolved_fields": fields,
		"occurred_at":     e.OccurredAt.UTC().Format(time.RFC3339),
	}
}

func (e TurnCompleted) Timestamp() time.Time {
	return e.OccurredAt
}
