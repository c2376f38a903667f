// Package program describes the washer's fixed wash program as data.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// The sequencer interprets it; tests inspect it directly.
package program

import (
	"fmt"
	"time"
)

// Actuator names one of the binary outputs driven by the sequencer.
type Actuator string

const (
	Power     Actuator = "power"     // motor enable (main and drain motors)
	Direction Actuator = "direction" // high = clockwise, low = counter-clockwise
	Drain     Actuator = "drain"     // drain pump/valve
	Inlet     Actuator = "inlet"     // water inlet valve
)

var actuators = []Actuator{Power, Direction, Drain, Inlet}

// Actuators returns every actuator in the order IdlePhase switches them off.
func Actuators() []Actuator {
	return append([]Actuator(nil), actuators...)
}

// PhaseName identifies a stage of the wash program.
type PhaseName string

const (
	PhaseIdle    PhaseName = "idle"
	PhaseFilling PhaseName = "filling"
	PhaseWash    PhaseName = "wash"
	PhaseDrain   PhaseName = "drain"
	PhaseSpin    PhaseName = "spin"
)

// StepKind selects what a Step does.
type StepKind int

const (
	// StepSet drives an actuator on or off.
	StepSet StepKind = iota
	// StepWait blocks for Duration.
	StepWait
	// StepAwaitLevel holds the inlet open until the water level sensor asserts.
	StepAwaitLevel
)

func (k StepKind) String() string {
	switch k {
	case StepSet:
		return "set"
	case StepWait:
		return "wait"
	case StepAwaitLevel:
		return "await_level"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// Step is a single instruction of the program.
type Step struct {
	Kind     StepKind
	Actuator Actuator      // StepSet only
	On       bool          // StepSet only
	Duration time.Duration // StepWait only
}

// On returns a step that switches a on.
func On(a Actuator) Step {
	return Step{Kind: StepSet, Actuator: a, On: true}
}

// Off returns a step that switches a off.
func Off(a Actuator) Step {
	return Step{Kind: StepSet, Actuator: a, On: false}
}

// Wait returns a step that blocks for d.
func Wait(d time.Duration) Step {
	return Step{Kind: StepWait, Duration: d}
}

// AwaitLevel returns the fill step.
func AwaitLevel() Step {
	return Step{Kind: StepAwaitLevel}
}

func (s Step) String() string {
	switch s.Kind {
	case StepSet:
		if s.On {
			return string(s.Actuator) + "=on"
		}
		return string(s.Actuator) + "=off"
	case StepWait:
		return "wait " + s.Duration.String()
	default:
		return s.Kind.String()
	}
}

// Block is a named group of steps executed Repeat times back to back.
type Block struct {
	Name   string
	Repeat int
	Steps  []Step
}

// Duration returns the total fixed wait time of the block, all repeats included.
func (b Block) Duration() time.Duration {
	var d time.Duration
	for _, s := range b.Steps {
		if s.Kind == StepWait {
			d += s.Duration
		}
	}
	return d * time.Duration(b.Repeat)
}

// Phase is a named stage made of one or more blocks.
type Phase struct {
	Name   PhaseName
	Blocks []Block
}

// Duration returns the fixed wait time of the phase. Time spent in
// StepAwaitLevel depends on the sensor and is not included.
func (p Phase) Duration() time.Duration {
	var d time.Duration
	for _, b := range p.Blocks {
		d += b.Duration()
	}
	return d
}

// StepCount returns the number of steps the phase executes, repeats included.
func (p Phase) StepCount() int {
	n := 0
	for _, b := range p.Blocks {
		n += len(b.Steps) * b.Repeat
	}
	return n
}
