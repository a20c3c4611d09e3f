package topic

import (
	"encoding/json"
	"strings"
)

// Priority orders events for the per-session drop policy. Higher values
// survive queue pressure longer.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns the wire spelling of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalJSON emits the priority as its wire spelling.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts the wire spelling; unknown values decode as low.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParsePriority(s)
	return nil
}

// ParsePriority maps a wire spelling to a Priority; unknown spellings
// map to low.
func ParsePriority(s string) Priority {
	switch s {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Event-kind classification for bus-originated events. Keyed on the
// final subject segment.
var kindPriorities = map[string]Priority{
	"alert":     PriorityCritical,
	"alarm":     PriorityCritical,
	"offline":   PriorityCritical,
	"emergency": PriorityHigh,
	"sos":       PriorityHigh,
	"created":   PriorityMedium,
	"updated":   PriorityMedium,
	"deleted":   PriorityMedium,
	"message":   PriorityMedium,
}

// PriorityFor classifies an event topic by its kind segment. Telemetry
// kinds (ndvi, weather, moisture and anything unlisted) are low.
func PriorityFor(t string) Priority {
	segs := strings.Split(t, ".")
	kind := segs[len(segs)-1]
	if p, ok := kindPriorities[kind]; ok {
		return p
	}
	return PriorityLow
}
