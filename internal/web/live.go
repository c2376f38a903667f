package web

import (
	"sync"
	"time"

	"github.com/sweeney/washer-sequencer/internal/program"
	"github.com/sweeney/washer-sequencer/internal/status"
)

// liveBuffer is the per-subscriber queue length. Events beyond it are
// dropped for that subscriber only.
const liveBuffer = 64

// LiveEvent is one sequencer callback as sent to websocket clients.
type LiveEvent struct {
	Type     string    `json:"type"`
	At       time.Time `json:"at"`
	Phase    string    `json:"phase,omitempty"`
	Block    string    `json:"block,omitempty"`
	Run      int       `json:"run,omitempty"`
	Of       int       `json:"of,omitempty"`
	Actuator string    `json:"actuator,omitempty"`
	State    string    `json:"state,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Live fans sequencer callbacks out to websocket subscribers. It never
// blocks the sequencer.
type Live struct {
	mu     sync.Mutex
	subs   map[chan LiveEvent]struct{}
	closed bool
}

// NewLive creates an empty Live hub.
func NewLive() *Live {
	return &Live{subs: make(map[chan LiveEvent]struct{})}
}

func (l *Live) PhaseStarted(phase program.PhaseName, at time.Time) {
	l.broadcast(LiveEvent{Type: "phase_started", At: at, Phase: string(phase)})
}

func (l *Live) PhaseFinished(phase program.PhaseName, at time.Time, err error) {
	e := LiveEvent{Type: "phase_finished", At: at, Phase: string(phase)}
	if err != nil {
		e.Type = "phase_failed"
		e.Error = err.Error()
	}
	l.broadcast(e)
}

func (l *Live) BlockStarted(phase program.PhaseName, block string, run, of int, at time.Time) {
	l.broadcast(LiveEvent{Type: "block_started", At: at, Phase: string(phase), Block: block, Run: run, Of: of})
}

func (l *Live) ActuatorSet(a program.Actuator, on bool, at time.Time) {
	l.broadcast(LiveEvent{Type: "actuator", At: at, Actuator: string(a), State: status.OnOff(on)})
}

// Subscribers returns the number of connected clients.
func (l *Live) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

// Close ends every subscription. Later callbacks are discarded.
func (l *Live) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for ch := range l.subs {
		close(ch)
		delete(l.subs, ch)
	}
}

// subscribe returns nil once the hub is closed.
func (l *Live) subscribe() chan LiveEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	ch := make(chan LiveEvent, liveBuffer)
	l.subs[ch] = struct{}{}
	return ch
}

func (l *Live) unsubscribe(ch chan LiveEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.subs[ch]; ok {
		delete(l.subs, ch)
		close(ch)
	}
}

func (l *Live) broadcast(e LiveEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
