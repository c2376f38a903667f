package mqtt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/washer-sequencer/internal/program"
)

func TestObserverPublishesProgress(t *testing.T) {
	pub := NewFakePublisher()
	o := NewObserver(pub)
	at := time.Date(2026, 2, 2, 22, 0, 0, 0, time.UTC)

	o.PhaseStarted(program.PhaseWash, at)
	o.BlockStarted(program.PhaseWash, "wash_cycle_1", 1, 40, at)
	o.ActuatorSet(program.Direction, true, at)
	o.PhaseFinished(program.PhaseWash, at, nil)

	require.Len(t, pub.Events, 4)
	assert.Equal(t, EventPhaseStarted, pub.Events[0].Type)
	assert.Equal(t, program.PhaseWash, pub.Events[0].Phase)
	assert.Equal(t, "wash_cycle_1", pub.Events[1].Block)
	assert.Equal(t, 40, pub.Events[1].Of)
	assert.Equal(t, program.Direction, pub.Events[2].Actuator)
	assert.True(t, pub.Events[2].On)
	assert.Equal(t, EventPhaseFinished, pub.Events[3].Type)

	assert.JSONEq(t,
		`{"washer":{"timestamp":"2026-02-02T22:00:00Z","event":"ACTUATOR","actuator":"direction","state":"ON"}}`,
		string(pub.PayloadsOn(Topic)[2]))
}

func TestObserverPhaseFailed(t *testing.T) {
	pub := NewFakePublisher()
	o := NewObserver(pub)

	o.PhaseFinished(program.PhaseFilling, time.Now(), errors.New("fill timeout"))

	failed := pub.EventsOfType(EventPhaseFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "fill timeout", failed[0].Error)
	assert.Empty(t, pub.EventsOfType(EventPhaseFinished))
}

func TestObserverSwallowsPublishErrors(t *testing.T) {
	pub := NewFakePublisher()
	pub.PublishError = errors.New("broker gone")
	o := NewObserver(pub)

	assert.NotPanics(t, func() {
		o.ActuatorSet(program.Inlet, true, time.Now())
	})
	assert.Empty(t, pub.Events)
}
