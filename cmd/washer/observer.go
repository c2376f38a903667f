package main

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/washer-sequencer/internal/program"
)

// logObserver logs sequencer progress. Phase boundaries log at info,
// block and actuator detail at debug.
type logObserver struct {
	mu      sync.Mutex
	started time.Time
}

func newLogObserver() *logObserver {
	return &logObserver{}
}

func (l *logObserver) PhaseStarted(phase program.PhaseName, at time.Time) {
	l.mu.Lock()
	l.started = at
	l.mu.Unlock()
	log.Info().Str("phase", string(phase)).Msg("phase started")
}

func (l *logObserver) PhaseFinished(phase program.PhaseName, at time.Time, err error) {
	l.mu.Lock()
	elapsed := at.Sub(l.started)
	l.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("phase", string(phase)).Dur("elapsed", elapsed).Msg("phase failed")
		return
	}
	log.Info().Str("phase", string(phase)).Dur("elapsed", elapsed).Msg("phase finished")
}

func (l *logObserver) BlockStarted(phase program.PhaseName, block string, run, of int, at time.Time) {
	log.Debug().
		Str("phase", string(phase)).
		Str("block", block).
		Int("run", run).
		Int("of", of).
		Msg("block started")
}

func (l *logObserver) ActuatorSet(a program.Actuator, on bool, at time.Time) {
	log.Debug().Str("actuator", string(a)).Bool("on", on).Msg("actuator set")
}
