package program

import (
	"errors"
	"fmt"
	"time"
)

// Fixed timings of the wash program.
const (
	FillSettle = 1 * time.Second

	DrainOpen   = 60 * time.Second
	DrainSettle = 1 * time.Second

	SpinPreSettle     = 3 * time.Second
	SpinFirstPulse    = 1 * time.Second
	SpinFirstPause    = 2 * time.Second
	SpinSecondPulse   = 2 * time.Second
	SpinSecondPause   = 2 * time.Second
	SpinSustainedStep = 60 * time.Second
	SpinSustainedRuns = 3
	SpinDown          = 15 * time.Second

	// WashCycleRepeat is how many times each wash sub-cycle runs.
	WashCycleRepeat = 40
)

// ErrUnknownVariant is returned for a wash sub-cycle variant other than 1, 2 or 3.
var ErrUnknownVariant = errors.New("unknown wash cycle variant")

// WashVariant holds the agitation timings of one wash sub-cycle.
type WashVariant struct {
	Drive time.Duration // motor on per direction
	Pause time.Duration // motor off after each drive
}

var washVariants = map[int]WashVariant{
	1: {Drive: 2500 * time.Millisecond, Pause: 1500 * time.Millisecond},
	2: {Drive: 2500 * time.Millisecond, Pause: 500 * time.Millisecond},
	3: {Drive: 4500 * time.Millisecond, Pause: 1500 * time.Millisecond},
}

// LookupWashVariant returns the timings of sub-cycle 1, 2 or 3.
func LookupWashVariant(variant int) (WashVariant, error) {
	v, ok := washVariants[variant]
	if !ok {
		return WashVariant{}, fmt.Errorf("%w: %d", ErrUnknownVariant, variant)
	}
	return v, nil
}

// WashCycleName returns the block name of a wash sub-cycle.
func WashCycleName(variant int) string {
	return fmt.Sprintf("wash_cycle_%d", variant)
}

// WashCycle returns a single run of the given sub-cycle: clockwise drive,
// pause, counter-clockwise drive, pause.
func WashCycle(variant int) (Block, error) {
	v, err := LookupWashVariant(variant)
	if err != nil {
		return Block{}, err
	}
	return Block{
		Name:   WashCycleName(variant),
		Repeat: 1,
		Steps: []Step{
			On(Direction),
			On(Power),
			Wait(v.Drive),
			Off(Power),
			Wait(v.Pause),
			Off(Direction),
			On(Power),
			Wait(v.Drive),
			Off(Power),
			Wait(v.Pause),
		},
	}, nil
}

// IdlePhase switches every actuator off.
func IdlePhase() Phase {
	steps := make([]Step, 0, len(actuators))
	for _, a := range actuators {
		steps = append(steps, Off(a))
	}
	return Phase{
		Name:   PhaseIdle,
		Blocks: []Block{{Name: string(PhaseIdle), Repeat: 1, Steps: steps}},
	}
}

// FillingPhase holds the inlet open until the level sensor asserts, then settles.
func FillingPhase() Phase {
	return Phase{
		Name: PhaseFilling,
		Blocks: []Block{{
			Name:   string(PhaseFilling),
			Repeat: 1,
			Steps:  []Step{AwaitLevel(), Wait(FillSettle)},
		}},
	}
}

// WashPhase runs sub-cycle 1, 2 and 3 WashCycleRepeat times each, in that order.
func WashPhase() Phase {
	p := Phase{Name: PhaseWash}
	for variant := 1; variant <= 3; variant++ {
		b, _ := WashCycle(variant)
		b.Repeat = WashCycleRepeat
		p.Blocks = append(p.Blocks, b)
	}
	return p
}

// DrainPhase opens the drain for a fixed time, closes it and settles.
func DrainPhase() Phase {
	return Phase{
		Name: PhaseDrain,
		Blocks: []Block{{
			Name:   string(PhaseDrain),
			Repeat: 1,
			Steps: []Step{
				On(Drain),
				Wait(DrainOpen),
				Off(Drain),
				Wait(DrainSettle),
			},
		}},
	}
}

// SpinPhase ramps the motor with two short pulses, then runs it for three
// minutes with the drain open. Direction is not alternated.
func SpinPhase() Phase {
	steps := []Step{
		On(Direction),
		On(Drain),
		Wait(SpinPreSettle),
		On(Power),
		Wait(SpinFirstPulse),
		Off(Power),
		Wait(SpinFirstPause),
		On(Power),
		Wait(SpinSecondPulse),
		Off(Power),
		Wait(SpinSecondPause),
		On(Power),
	}
	for i := 0; i < SpinSustainedRuns; i++ {
		steps = append(steps, Wait(SpinSustainedStep))
	}
	steps = append(steps,
		Off(Power),
		Wait(SpinDown),
		Off(Drain),
	)
	return Phase{
		Name:   PhaseSpin,
		Blocks: []Block{{Name: string(PhaseSpin), Repeat: 1, Steps: steps}},
	}
}

// Standard returns the complete program:
// idle, fill, wash, drain, fill, wash, drain, spin, idle.
func Standard() []Phase {
	return []Phase{
		IdlePhase(),
		FillingPhase(),
		WashPhase(),
		DrainPhase(),
		FillingPhase(),
		WashPhase(),
		DrainPhase(),
		SpinPhase(),
		IdlePhase(),
	}
}

// Duration returns the fixed wait time of a list of phases.
func Duration(phases []Phase) time.Duration {
	var d time.Duration
	for _, p := range phases {
		d += p.Duration()
	}
	return d
}
