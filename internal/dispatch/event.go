package dispatch

import (
	"encoding/json"
	"time"

	"github.com/agromesh/realtime-gateway/internal/topic"
)

// Event is one routed event: produced by the bus bridge, by client
// broadcast frames, or by the admin surface; consumed here. Events are
// not persisted.
type Event struct {
	Topic         string
	EventType     string
	Payload       json.RawMessage
	Priority      topic.Priority
	SourceSubject string // bus subject of origin, "" for injected events
	Subject       string // publishing identity, "" for bus events
	IngestTime    time.Time
}

// eventFrame is the server-to-client wire form.
type eventFrame struct {
	Type      string          `json:"type"`
	EventType string          `json:"event_type"`
	Priority  topic.Priority  `json:"priority"`
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	Subject   string          `json:"subject,omitempty"`
}

// Encode serializes the event into the shared outbound frame buffer.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(eventFrame{
		Type:      "event",
		EventType: e.EventType,
		Priority:  e.Priority,
		Topic:     e.Topic,
		Data:      e.Payload,
		Timestamp: e.IngestTime,
		Subject:   e.Subject,
	})
}
