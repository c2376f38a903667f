package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/washer-sequencer/internal/program"
)

func TestTopics(t *testing.T) {
	assert.Equal(t, "appliance/washer/events", Topic)
	assert.Equal(t, "appliance/washer/system", TopicSystem)
}

func TestFormatPayloadActuator(t *testing.T) {
	event := Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      EventActuator,
		Phase:     program.PhaseSpin,
		Actuator:  program.Drain,
		On:        true,
	}

	payload, err := FormatPayload(event)
	require.NoError(t, err)

	expected := `{"washer":{"timestamp":"2026-02-02T22:18:12Z","event":"ACTUATOR","phase":"spin","actuator":"drain","state":"ON"}}`
	assert.Equal(t, expected, string(payload))
}

func TestFormatPayloadActuatorOff(t *testing.T) {
	payload, err := FormatPayload(Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      EventActuator,
		Actuator:  program.Inlet,
	})
	require.NoError(t, err)

	var parsed Payload
	require.NoError(t, json.Unmarshal(payload, &parsed))
	assert.Equal(t, "inlet", parsed.Washer.Actuator)
	assert.Equal(t, "OFF", parsed.Washer.State)
}

func TestFormatPayloadBlockStarted(t *testing.T) {
	payload, err := FormatPayload(Event{
		Timestamp: time.Date(2026, 2, 2, 22, 0, 0, 0, time.UTC),
		Type:      EventBlockStarted,
		Phase:     program.PhaseWash,
		Block:     "wash_cycle_3",
		Run:       12,
		Of:        40,
	})
	require.NoError(t, err)

	expected := `{"washer":{"timestamp":"2026-02-02T22:00:00Z","event":"BLOCK_STARTED","phase":"wash","block":"wash_cycle_3","run":12,"of":40}}`
	assert.Equal(t, expected, string(payload))
}

func TestFormatPayloadPhaseEvents(t *testing.T) {
	tests := []struct {
		event     Event
		wantEvent string
		wantError string
	}{
		{Event{Type: EventPhaseStarted, Phase: program.PhaseFilling}, "PHASE_STARTED", ""},
		{Event{Type: EventPhaseFinished, Phase: program.PhaseFilling}, "PHASE_FINISHED", ""},
		{Event{Type: EventPhaseFailed, Phase: program.PhaseFilling, Error: "timeout"}, "PHASE_FAILED", "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.wantEvent, func(t *testing.T) {
			tt.event.Timestamp = time.Now()
			payload, err := FormatPayload(tt.event)
			require.NoError(t, err)

			var parsed Payload
			require.NoError(t, json.Unmarshal(payload, &parsed))
			assert.Equal(t, tt.wantEvent, parsed.Washer.Event)
			assert.Equal(t, "filling", parsed.Washer.Phase)
			assert.Equal(t, tt.wantError, parsed.Washer.Error)
			assert.Empty(t, parsed.Washer.Actuator, "phase events carry no actuator")
			assert.Empty(t, parsed.Washer.State)
		})
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	payload, err := FormatPayload(Event{
		Timestamp: time.Date(2026, 2, 2, 23, 0, 0, 0, loc),
		Type:      EventPhaseStarted,
		Phase:     program.PhaseIdle,
	})
	require.NoError(t, err)

	var parsed Payload
	require.NoError(t, json.Unmarshal(payload, &parsed))
	assert.Equal(t, "2026-02-02T22:00:00Z", parsed.Washer.Timestamp)
}

func TestFormatSystemPayload(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})
	require.NoError(t, err)

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	assert.Equal(t, expected, string(payload))
}

func TestFormatSystemPayloadOmitsReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "COMPLETE",
	})
	require.NoError(t, err)

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"COMPLETE"}}`
	assert.Equal(t, expected, string(payload))
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	require.NoError(t, err)
	assert.Equal(t, raw, payload)
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	events := []Event{
		{Timestamp: time.Now(), Type: EventPhaseStarted, Phase: program.PhaseDrain},
		{Timestamp: time.Now(), Type: EventActuator, Actuator: program.Drain, On: true},
		{Timestamp: time.Now(), Type: EventActuator, Actuator: program.Drain},
	}
	for _, e := range events {
		require.NoError(t, f.Publish(e))
	}

	assert.Equal(t, events, f.Events)
	assert.Len(t, f.PayloadsOn(Topic), 3)
	assert.Empty(t, f.PayloadsOn(TopicSystem))
	assert.Len(t, f.EventsOfType(EventActuator), 2)
	assert.Len(t, f.EventsOfType(EventPhaseFailed), 0)
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	assert.Error(t, f.Publish(Event{Type: EventActuator}))
	assert.Error(t, f.PublishSystem(SystemEvent{Event: "FAULT"}))
	assert.Empty(t, f.Events)
	assert.Empty(t, f.SystemEvents)
}

func TestFakePublisherRecordsRetainedFlag(t *testing.T) {
	f := NewFakePublisher()

	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "COMPLETE"})

	require.Len(t, f.Messages, 2)
	assert.Equal(t, TopicSystem, f.Messages[0].Topic)
	assert.Equal(t, byte(1), f.Messages[0].QoS)
	assert.True(t, f.Messages[0].Retained)
	assert.False(t, f.Messages[1].Retained)
	assert.Equal(t, []string{"STARTUP", "COMPLETE"}, f.SystemEventNames())
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(Event{Type: EventActuator})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.Connected = true

	f.Reset()

	assert.Empty(t, f.Events)
	assert.Empty(t, f.SystemEvents)
	assert.Empty(t, f.Messages)
	assert.False(t, f.Closed)
	assert.False(t, f.IsConnected())
}
