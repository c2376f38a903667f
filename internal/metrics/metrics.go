// Package metrics emits DogStatsD metrics for wash phases and actuators.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/washer-sequencer/internal/program"
)

// Namespace prefixes every metric name.
const Namespace = "washer"

// Metric names, relative to Namespace.
const (
	MetricPhaseStarted     = "phase.started"
	MetricPhaseDuration    = "phase.duration_ms"
	MetricBlockRun         = "block.run"
	MetricActuatorState    = "actuator.state"
	MetricActuatorWrite    = "actuator.transition"
	MetricFault            = "fault"
	MetricProgramCompleted = "program.completed"
)

// Client is the subset of *statsd.Client the recorder uses.
type Client interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Timing(name string, value time.Duration, tags []string, rate float64) error
	Close() error
}

// Recorder turns sequencer callbacks into metrics. Emission failures are
// logged and never returned to the sequencer.
type Recorder struct {
	client Client

	mu         sync.Mutex
	phaseStart time.Time
	states     map[program.Actuator]bool
}

// New creates a Recorder sending to the DogStatsD agent at addr.
func New(addr string, tags []string) (*Recorder, error) {
	c, err := statsd.New(addr,
		statsd.WithNamespace(Namespace),
		statsd.WithTags(tags),
	)
	if err != nil {
		return nil, fmt.Errorf("create dogstatsd client: %w", err)
	}

	log.Info().
		Str("addr", addr).
		Str("namespace", Namespace).
		Strs("tags", tags).
		Msg("Datadog metrics initialized")

	return NewWithClient(c), nil
}

// NewWithClient creates a Recorder around an existing client.
func NewWithClient(c Client) *Recorder {
	return &Recorder{
		client: c,
		states: make(map[program.Actuator]bool),
	}
}

func (r *Recorder) PhaseStarted(phase program.PhaseName, at time.Time) {
	r.mu.Lock()
	r.phaseStart = at
	r.mu.Unlock()

	r.warn(MetricPhaseStarted, r.client.Count(MetricPhaseStarted, 1, phaseTags(phase), 1))
}

func (r *Recorder) PhaseFinished(phase program.PhaseName, at time.Time, err error) {
	r.mu.Lock()
	elapsed := at.Sub(r.phaseStart)
	r.mu.Unlock()

	cancelled := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	result := "ok"
	switch {
	case cancelled:
		result = "cancelled"
	case err != nil:
		result = "fault"
	}
	tags := append(phaseTags(phase), "result:"+result)
	r.warn(MetricPhaseDuration, r.client.Timing(MetricPhaseDuration, elapsed, tags, 1))

	if err != nil && !cancelled {
		r.warn(MetricFault, r.client.Count(MetricFault, 1, phaseTags(phase), 1))
	}
}

func (r *Recorder) BlockStarted(phase program.PhaseName, block string, run, of int, at time.Time) {
	tags := append(phaseTags(phase), "block:"+block)
	r.warn(MetricBlockRun, r.client.Gauge(MetricBlockRun, float64(run), tags, 1))
}

func (r *Recorder) ActuatorSet(a program.Actuator, on bool, at time.Time) {
	tags := []string{"actuator:" + string(a)}

	r.mu.Lock()
	prev, seen := r.states[a]
	r.states[a] = on
	r.mu.Unlock()

	v := 0.0
	if on {
		v = 1
	}
	r.warn(MetricActuatorState, r.client.Gauge(MetricActuatorState, v, tags, 1))

	if !seen || prev != on {
		r.warn(MetricActuatorWrite, r.client.Count(MetricActuatorWrite, 1, tags, 1))
	}
}

// ProgramCompleted counts a finished wash program.
func (r *Recorder) ProgramCompleted() {
	r.warn(MetricProgramCompleted, r.client.Count(MetricProgramCompleted, 1, nil, 1))
}

// Close flushes and closes the client.
func (r *Recorder) Close() error {
	return r.client.Close()
}

func (r *Recorder) warn(metric string, err error) {
	if err != nil {
		log.Warn().Err(err).Str("metric", metric).Msg("Failed to emit metric")
	}
}

func phaseTags(phase program.PhaseName) []string {
	return []string{"phase:" + string(phase)}
}
