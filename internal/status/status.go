// Package status provides a thread-safe status tracker for the washer daemon.
// It observes the sequencer and is read by the HTTP handlers and MQTT events.
package status

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sweeney/washer-sequencer/internal/program"
)

// RunState is the coarse state of the daemon.
type RunState string

const (
	StateStarting RunState = "STARTING"
	StateRunning  RunState = "RUNNING"
	StateComplete RunState = "COMPLETE"
	StateFault    RunState = "FAULT"
	StateStopped  RunState = "STOPPED"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip          string
	FillTimeoutMs int64
	PollMs        int64
	HeartbeatMs   int64
	Broker        string
	HTTPAddr      string
	StatsdAddr    string
}

// Actuators holds the last written value of each actuator.
type Actuators struct {
	Power     bool
	Direction bool
	Drain     bool
	Inlet     bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	State          RunState
	Fault          string
	Phase          program.PhaseName
	PhaseStartedAt time.Time
	Block          string
	Run            int
	Of             int
	PhaseIndex     int // phases started so far
	PhaseCount     int // phases in the program
	Actuators      Actuators
	Transitions    int
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Network        *NetworkInfo
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, program length and config.
func NewTracker(startTime time.Time, phaseCount int, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:      StateStarting,
			StartTime:  startTime,
			PhaseCount: phaseCount,
			Config:     cfg,
		},
	}
}

// PhaseStarted records the new phase.
func (t *Tracker) PhaseStarted(phase program.PhaseName, at time.Time) {
	t.mu.Lock()
	t.snap.State = StateRunning
	t.snap.Phase = phase
	t.snap.PhaseStartedAt = at
	t.snap.Block = ""
	t.snap.Run = 0
	t.snap.Of = 0
	t.snap.PhaseIndex++
	t.mu.Unlock()
}

// PhaseFinished records a fault if the phase failed. A cancelled run is a
// shutdown, not a fault.
func (t *Tracker) PhaseFinished(phase program.PhaseName, at time.Time, err error) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	t.SetFault(err.Error())
}

// BlockStarted records progress inside the phase.
func (t *Tracker) BlockStarted(phase program.PhaseName, block string, run, of int, at time.Time) {
	t.mu.Lock()
	t.snap.Block = block
	t.snap.Run = run
	t.snap.Of = of
	t.mu.Unlock()
}

// ActuatorSet records the written value.
func (t *Tracker) ActuatorSet(a program.Actuator, on bool, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var cur *bool
	switch a {
	case program.Power:
		cur = &t.snap.Actuators.Power
	case program.Direction:
		cur = &t.snap.Actuators.Direction
	case program.Drain:
		cur = &t.snap.Actuators.Drain
	case program.Inlet:
		cur = &t.snap.Actuators.Inlet
	default:
		return
	}
	if *cur != on {
		t.snap.Transitions++
	}
	*cur = on
}

// SetState sets the run state.
func (t *Tracker) SetState(s RunState) {
	t.mu.Lock()
	t.snap.State = s
	t.mu.Unlock()
}

// SetFault moves the tracker to FAULT with the given reason.
func (t *Tracker) SetFault(reason string) {
	t.mu.Lock()
	t.snap.State = StateFault
	t.snap.Fault = reason
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
