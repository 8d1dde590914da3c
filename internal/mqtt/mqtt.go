// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/rep-counter/internal/calibration"
	"github.com/sweeney/rep-counter/internal/session"
)

// DefaultTopicPrefix is the root of every topic the daemon publishes on.
const DefaultTopicPrefix = "fitness/rep-counter"

// timestampFormat keeps millisecond precision; reps can land within a second.
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Topics are the concrete topic names under one prefix.
type Topics struct {
	Events    string
	Telemetry string
	System    string
}

// TopicsFor derives the topic set for prefix. An empty prefix uses
// DefaultTopicPrefix.
func TopicsFor(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Events:    prefix + "/events",
		Telemetry: prefix + "/telemetry",
		System:    prefix + "/system",
	}
}

// Topic returns the topic that carries e.
func (t Topics) Topic(e session.Event) string {
	if e.Type == session.EventTelemetry {
		return t.Telemetry
	}
	return t.Events
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a session event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event session.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	RepCounter EventPayload `json:"rep_counter"`
}

// EventPayload contains the session event details. Only the fields of the
// event's type are present.
type EventPayload struct {
	Timestamp   string            `json:"timestamp"`
	SessionID   string            `json:"session_id"`
	Event       string            `json:"event"`
	Mode        string            `json:"mode"`
	Count       *int              `json:"count,omitempty"`
	Seconds     *int              `json:"seconds,omitempty"`
	Paused      *bool             `json:"paused,omitempty"`
	Posture     string            `json:"posture,omitempty"`
	Feedback    *session.Feedback `json:"feedback,omitempty"`
	Calibration *calibration.Data `json:"calibration,omitempty"`
}

// FormatPayload creates the JSON payload for a session event. Telemetry
// events are sent as the bare record.
func FormatPayload(event session.Event) ([]byte, error) {
	if event.Type == session.EventTelemetry && event.Telemetry != nil {
		return json.Marshal(event.Telemetry)
	}

	p := EventPayload{
		Timestamp: event.Time.UTC().Format(timestampFormat),
		SessionID: event.SessionID,
		Event:     string(event.Type),
		Mode:      event.Mode.String(),
	}
	switch event.Type {
	case session.EventRepCount:
		count := event.Count
		p.Count = &count
	case session.EventTimeUpdate:
		seconds, paused := event.Seconds, event.Paused
		p.Seconds = &seconds
		p.Paused = &paused
	case session.EventPostureChange:
		p.Posture = string(event.Status)
	case session.EventFormFeedback:
		p.Feedback = event.Feedback
	case session.EventCalibrationComplete:
		p.Calibration = event.Calibration
	}
	return json.Marshal(Payload{RepCounter: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
