// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/washer-sequencer/internal/program"
)

// Topic is the MQTT topic for washer phase and actuator events.
const Topic = "appliance/washer/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "appliance/washer/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a washer event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// EventType identifies a washer event.
type EventType string

const (
	EventPhaseStarted  EventType = "PHASE_STARTED"
	EventPhaseFinished EventType = "PHASE_FINISHED"
	EventPhaseFailed   EventType = "PHASE_FAILED"
	EventBlockStarted  EventType = "BLOCK_STARTED"
	EventActuator      EventType = "ACTUATOR"
)

// Event is a single washer event.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Phase     program.PhaseName
	Block     string
	Run       int
	Of        int
	Actuator  program.Actuator
	On        bool
	Error     string
}

// SystemEvent represents a system lifecycle event (e.g., startup, complete, fault, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "COMPLETE", "FAULT", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "FILL_TIMEOUT"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Washer WasherPayload `json:"washer"`
}

// WasherPayload contains the washer event details.
type WasherPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Phase     string `json:"phase,omitempty"`
	Block     string `json:"block,omitempty"`
	Run       int    `json:"run,omitempty"`
	Of        int    `json:"of,omitempty"`
	Actuator  string `json:"actuator,omitempty"`
	State     string `json:"state,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FormatPayload creates the JSON payload for a washer event.
func FormatPayload(event Event) ([]byte, error) {
	p := WasherPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
		Phase:     string(event.Phase),
		Block:     event.Block,
		Run:       event.Run,
		Of:        event.Of,
		Error:     event.Error,
	}
	if event.Type == EventActuator {
		p.Actuator = string(event.Actuator)
		p.State = "OFF"
		if event.On {
			p.State = "ON"
		}
	}
	return json.Marshal(Payload{Washer: p})
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
