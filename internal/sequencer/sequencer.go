// Package sequencer drives the washer's actuators through the wash program.
//
// A CycleSequencer owns the power, direction, drain and inlet outputs and
// the water level input. It interprets the steps from package program one
// at a time, checking the context between steps and inside every wait, so
// a run can be cancelled at any point. Every hardware call may fail; the
// first failure stops the run and is returned as a *PhaseError, leaving the
// caller to decide how to reach a safe state.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/washer-sequencer/internal/clock"
	"github.com/sweeney/washer-sequencer/internal/gpio"
	"github.com/sweeney/washer-sequencer/internal/program"
)

const (
	// DefaultPollInterval is the wait between water level reads.
	DefaultPollInterval = 10 * time.Millisecond
	// DefaultFillTimeout bounds a single fill.
	DefaultFillTimeout = 15 * time.Minute
	// HeartbeatPeriod is the status LED toggle period after the program ends.
	HeartbeatPeriod = 1 * time.Second
)

// ErrFillTimeout is returned when the water level is not reached in time.
var ErrFillTimeout = errors.New("water level not reached before fill timeout")

// PhaseError reports where a run stopped.
type PhaseError struct {
	Phase program.PhaseName
	Block string
	Err   error
}

func (e *PhaseError) Error() string {
	if e.Block == "" || e.Block == string(e.Phase) {
		return fmt.Sprintf("phase %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("phase %s (%s): %v", e.Phase, e.Block, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Option configures a CycleSequencer.
type Option func(*CycleSequencer)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *CycleSequencer) { s.clock = c }
}

// WithFillTimeout bounds each fill. Zero waits forever.
func WithFillTimeout(d time.Duration) Option {
	return func(s *CycleSequencer) { s.fillTimeout = d }
}

// WithPollInterval sets the wait between water level reads. Values <= 0
// keep the default.
func WithPollInterval(d time.Duration) Option {
	return func(s *CycleSequencer) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithObserver registers an observer for phase and actuator callbacks.
func WithObserver(o Observer) Option {
	return func(s *CycleSequencer) { s.observer = o }
}

// CycleSequencer runs the wash program against the hardware it owns.
// It is not safe for concurrent use.
type CycleSequencer struct {
	outputs map[program.Actuator]gpio.Output
	sensor  gpio.Input

	clock        clock.Clock
	fillTimeout  time.Duration
	pollInterval time.Duration
	observer     Observer

	// mark is when the current timed step began: the last actuator write,
	// or the end of the previous wait. Waits end at mark plus their
	// duration, so time spent in observers does not stretch them.
	mark time.Time
}

// New creates a sequencer that takes ownership of the given handles.
func New(power, direction, drain, inlet gpio.Output, sensor gpio.Input, opts ...Option) *CycleSequencer {
	s := &CycleSequencer{
		outputs: map[program.Actuator]gpio.Output{
			program.Power:     power,
			program.Direction: direction,
			program.Drain:     drain,
			program.Inlet:     inlet,
		},
		sensor:       sensor,
		clock:        clock.Real{},
		fillTimeout:  DefaultFillTimeout,
		pollInterval: DefaultPollInterval,
		observer:     NopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromBoard creates a sequencer from a board's actuator and level handles.
func FromBoard(b *gpio.Board, opts ...Option) *CycleSequencer {
	return New(b.Power, b.Direction, b.Drain, b.Inlet, b.Level, opts...)
}

// Idle switches power, direction, drain and inlet off.
func (s *CycleSequencer) Idle(ctx context.Context) error {
	return s.RunPhase(ctx, program.IdlePhase())
}

// Filling holds the inlet open until the water level sensor asserts, closes
// it and settles for one second.
func (s *CycleSequencer) Filling(ctx context.Context) error {
	return s.RunPhase(ctx, program.FillingPhase())
}

// Wash runs the three agitation sub-cycles, forty times each.
func (s *CycleSequencer) Wash(ctx context.Context) error {
	return s.RunPhase(ctx, program.WashPhase())
}

// WashCycle runs one repetition of the given sub-cycle (1, 2 or 3).
func (s *CycleSequencer) WashCycle(ctx context.Context, variant int) error {
	b, err := program.WashCycle(variant)
	if err != nil {
		return err
	}
	s.mark = s.clock.Now()
	return s.runBlock(ctx, program.PhaseWash, b)
}

// Drain opens the drain for a minute, closes it and settles.
func (s *CycleSequencer) Drain(ctx context.Context) error {
	return s.RunPhase(ctx, program.DrainPhase())
}

// Spin runs the staged high speed spin with the drain held open.
func (s *CycleSequencer) Spin(ctx context.Context) error {
	return s.RunPhase(ctx, program.SpinPhase())
}

// Run executes the standard program from idle to idle.
func (s *CycleSequencer) Run(ctx context.Context) error {
	return s.RunProgram(ctx, program.Standard())
}

// RunProgram executes phases in order and stops at the first error.
func (s *CycleSequencer) RunProgram(ctx context.Context, phases []program.Phase) error {
	for _, p := range phases {
		if err := s.RunPhase(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RunPhase executes every block of p.
func (s *CycleSequencer) RunPhase(ctx context.Context, p program.Phase) error {
	if err := ctx.Err(); err != nil {
		return &PhaseError{Phase: p.Name, Err: err}
	}

	s.mark = s.clock.Now()
	s.observer.PhaseStarted(p.Name, s.mark)
	var err error
	for _, b := range p.Blocks {
		if err = s.runBlock(ctx, p.Name, b); err != nil {
			break
		}
	}
	s.observer.PhaseFinished(p.Name, s.clock.Now(), err)
	return err
}

func (s *CycleSequencer) runBlock(ctx context.Context, phase program.PhaseName, b program.Block) error {
	for run := 1; run <= b.Repeat; run++ {
		s.observer.BlockStarted(phase, b.Name, run, b.Repeat, s.clock.Now())
		for _, step := range b.Steps {
			if err := ctx.Err(); err != nil {
				return &PhaseError{Phase: phase, Block: b.Name, Err: err}
			}
			if err := s.exec(ctx, step); err != nil {
				return &PhaseError{Phase: phase, Block: b.Name, Err: err}
			}
		}
	}
	return nil
}

func (s *CycleSequencer) exec(ctx context.Context, step program.Step) error {
	switch step.Kind {
	case program.StepSet:
		return s.set(step.Actuator, step.On)
	case program.StepWait:
		return s.wait(ctx, step.Duration)
	case program.StepAwaitLevel:
		return s.awaitLevel(ctx)
	default:
		return fmt.Errorf("unknown step kind %s", step.Kind)
	}
}

func (s *CycleSequencer) set(a program.Actuator, on bool) error {
	out, ok := s.outputs[a]
	if !ok || out == nil {
		return fmt.Errorf("no output for actuator %s", a)
	}
	if err := out.Set(on); err != nil {
		return fmt.Errorf("set %s=%s: %w", a, onOff(on), err)
	}
	s.mark = s.clock.Now()
	s.observer.ActuatorSet(a, on, s.mark)
	return nil
}

// wait blocks until d after mark and advances mark by d.
func (s *CycleSequencer) wait(ctx context.Context, d time.Duration) error {
	deadline := s.mark.Add(d)
	s.mark = deadline
	return s.clock.Sleep(ctx, deadline.Sub(s.clock.Now()))
}

// awaitLevel opens the inlet on the first low-level read and closes it as
// soon as the sensor asserts. The sensor is read on every iteration.
func (s *CycleSequencer) awaitLevel(ctx context.Context) error {
	var deadline time.Time
	if s.fillTimeout > 0 {
		deadline = s.clock.Now().Add(s.fillTimeout)
	}

	open := false
	for {
		full, err := s.sensor.Asserted()
		if err != nil {
			return fmt.Errorf("read water level: %w", err)
		}
		if full {
			return s.set(program.Inlet, false)
		}

		if !open {
			if err := s.set(program.Inlet, true); err != nil {
				return err
			}
			open = true
		}

		if !deadline.IsZero() && !s.clock.Now().Before(deadline) {
			if err := s.set(program.Inlet, false); err != nil {
				return errors.Join(ErrFillTimeout, err)
			}
			return ErrFillTimeout
		}

		if err := s.clock.Sleep(ctx, s.pollInterval); err != nil {
			return err
		}
	}
}

// SafeState drives every actuator off, attempting all of them even if some
// fail. It ignores cancellation so it can run after a cancelled program.
func (s *CycleSequencer) SafeState() error {
	var errs []error
	for _, a := range program.Actuators() {
		if err := s.set(a, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Heartbeat toggles led every period until ctx is done, starting with on.
// It returns nil when the context ends and the first write error otherwise.
func (s *CycleSequencer) Heartbeat(ctx context.Context, led gpio.Output, period time.Duration) error {
	on := false
	for {
		on = !on
		if err := led.Set(on); err != nil {
			return fmt.Errorf("toggle status led: %w", err)
		}
		if err := s.clock.Sleep(ctx, period); err != nil {
			return nil
		}
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
