package bridge

import (
	"testing"
	"time"

	"github.com/agromesh/realtime-gateway/internal/topic"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		payload  string
		wantErr  bool
		topic    string
		priority topic.Priority
	}{
		{
			name:     "field telemetry",
			subject:  "agro.fields.F001.ndvi",
			payload:  `{"ndvi":0.72}`,
			topic:    "field.F001.ndvi",
			priority: topic.PriorityLow,
		},
		{
			name:     "tenant alert",
			subject:  "agro.tenants.T1.alert",
			payload:  `{"severity":"frost"}`,
			topic:    "tenant.T1.alert",
			priority: topic.PriorityCritical,
		},
		{
			name:     "domain mutation",
			subject:  "agro.fields.F001.updated",
			payload:  `{"name":"north"}`,
			topic:    "field.F001.updated",
			priority: topic.PriorityMedium,
		},
		{
			name:    "invalid json payload",
			subject: "agro.fields.F001.ndvi",
			payload: `{"ndvi":`,
			wantErr: true,
		},
		{
			name:    "unknown domain",
			subject: "agro.markets.M1.tick",
			payload: `{}`,
			wantErr: true,
		},
		{
			name:    "foreign root",
			subject: "other.fields.F001.ndvi",
			payload: `{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := translate("agro", tt.subject, []byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("translate error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if ev.Topic != tt.topic {
				t.Errorf("Topic = %q, want %q", ev.Topic, tt.topic)
			}
			if ev.Priority != tt.priority {
				t.Errorf("Priority = %v, want %v", ev.Priority, tt.priority)
			}
			if ev.SourceSubject != tt.subject {
				t.Errorf("SourceSubject = %q, want %q", ev.SourceSubject, tt.subject)
			}
			if ev.IngestTime.IsZero() {
				t.Error("IngestTime is zero")
			}
		})
	}
}

func TestReconnectDelay(t *testing.T) {
	b := New(Config{
		ReconnectBaseWait: 500 * time.Millisecond,
		ReconnectMaxWait:  30 * time.Second,
	}, nil, nil)

	for attempts := 1; attempts <= 12; attempts++ {
		d := b.reconnectDelay(attempts)
		if d < 400*time.Millisecond {
			t.Errorf("attempt %d: delay %v below base minus jitter", attempts, d)
		}
		if d > 36*time.Second {
			t.Errorf("attempt %d: delay %v above cap plus jitter", attempts, d)
		}
	}

	// Backoff is monotone in expectation: attempt 1 stays near the base.
	if d := b.reconnectDelay(1); d > 600*time.Millisecond {
		t.Errorf("attempt 1 delay %v exceeds base plus jitter", d)
	}
}
