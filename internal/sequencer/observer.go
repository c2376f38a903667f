package sequencer

import (
	"time"

	"github.com/sweeney/washer-sequencer/internal/program"
)

// Observer is notified synchronously as the sequencer runs. Callbacks run
// on the sequencing goroutine and should return quickly.
type Observer interface {
	PhaseStarted(phase program.PhaseName, at time.Time)
	// PhaseFinished is called once per started phase; err is nil on success.
	PhaseFinished(phase program.PhaseName, at time.Time, err error)
	// BlockStarted is called before each repetition of a block (run is 1-based).
	BlockStarted(phase program.PhaseName, block string, run, of int, at time.Time)
	// ActuatorSet is called after every successful write, including writes
	// that do not change the line.
	ActuatorSet(a program.Actuator, on bool, at time.Time)
}

// Observers fans callbacks out to each observer in order.
type Observers []Observer

func (obs Observers) PhaseStarted(phase program.PhaseName, at time.Time) {
	for _, o := range obs {
		o.PhaseStarted(phase, at)
	}
}

func (obs Observers) PhaseFinished(phase program.PhaseName, at time.Time, err error) {
	for _, o := range obs {
		o.PhaseFinished(phase, at, err)
	}
}

func (obs Observers) BlockStarted(phase program.PhaseName, block string, run, of int, at time.Time) {
	for _, o := range obs {
		o.BlockStarted(phase, block, run, of, at)
	}
}

func (obs Observers) ActuatorSet(a program.Actuator, on bool, at time.Time) {
	for _, o := range obs {
		o.ActuatorSet(a, on, at)
	}
}

// NopObserver ignores every callback.
type NopObserver struct{}

func (NopObserver) PhaseStarted(program.PhaseName, time.Time)                    {}
func (NopObserver) PhaseFinished(program.PhaseName, time.Time, error)            {}
func (NopObserver) BlockStarted(program.PhaseName, string, int, int, time.Time) {}
func (NopObserver) ActuatorSet(program.Actuator, bool, time.Time)               {}
