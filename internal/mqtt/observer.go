package mqtt

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/washer-sequencer/internal/program"
)

// Observer publishes sequencer progress as washer events. Publish failures
// are logged and never interrupt the program.
type Observer struct {
	pub Publisher
}

// NewObserver returns an Observer publishing through pub.
func NewObserver(pub Publisher) *Observer {
	return &Observer{pub: pub}
}

func (o *Observer) PhaseStarted(phase program.PhaseName, at time.Time) {
	o.publish(Event{Timestamp: at, Type: EventPhaseStarted, Phase: phase})
}

func (o *Observer) PhaseFinished(phase program.PhaseName, at time.Time, err error) {
	e := Event{Timestamp: at, Type: EventPhaseFinished, Phase: phase}
	if err != nil {
		e.Type = EventPhaseFailed
		e.Error = err.Error()
	}
	o.publish(e)
}

func (o *Observer) BlockStarted(phase program.PhaseName, block string, run, of int, at time.Time) {
	o.publish(Event{Timestamp: at, Type: EventBlockStarted, Phase: phase, Block: block, Run: run, Of: of})
}

func (o *Observer) ActuatorSet(a program.Actuator, on bool, at time.Time) {
	o.publish(Event{Timestamp: at, Type: EventActuator, Actuator: a, On: on})
}

func (o *Observer) publish(e Event) {
	if err := o.pub.Publish(e); err != nil {
		log.Warn().Err(err).Str("event", string(e.Type)).Msg("publish error")
	}
}
