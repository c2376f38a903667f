package gpio

import (
	"errors"
	"time"
)

// Event is a single recorded output write.
type Event struct {
	At  time.Time
	Pin string
	On  bool
}

// Recorder collects writes from every FakeOutput that shares it, in order.
type Recorder struct {
	// Events contains every write, including writes that did not change state.
	Events []Event

	now func() time.Time
}

// NewRecorder creates a Recorder that timestamps events with now.
func NewRecorder(now func() time.Time) *Recorder {
	return &Recorder{now: now}
}

func (r *Recorder) record(pin string, on bool) {
	var at time.Time
	if r.now != nil {
		at = r.now()
	}
	r.Events = append(r.Events, Event{At: at, Pin: pin, On: on})
}

// For returns the events written to pin.
func (r *Recorder) For(pin string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Pin == pin {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears recorded events.
func (r *Recorder) Reset() {
	r.Events = nil
}

// FakeOutput is a test double that records writes.
type FakeOutput struct {
	// Name identifies the output in recorded events.
	Name string

	// State is the last value written.
	State bool

	// Writes counts calls to Set, failed ones included.
	Writes int

	// SetError, if set, will be returned by Set and the state is left unchanged.
	SetError error

	rec *Recorder
}

// NewFakeOutput creates a FakeOutput that records into rec (may be nil).
func NewFakeOutput(name string, rec *Recorder) *FakeOutput {
	return &FakeOutput{Name: name, rec: rec}
}

// Set records the write.
func (f *FakeOutput) Set(on bool) error {
	f.Writes++
	if f.SetError != nil {
		return f.SetError
	}
	f.State = on
	if f.rec != nil {
		f.rec.record(f.Name, on)
	}
	return nil
}

// FakeInput is a test double that returns scripted sensor values.
type FakeInput struct {
	// Samples contains scripted asserted values to return.
	// Each call to Asserted() consumes the next sample.
	Samples []bool

	// Reads counts calls to Asserted.
	Reads int

	// ReadError, if set, will be returned by Asserted().
	ReadError error

	index int
}

// NewFakeInput creates a FakeInput with the given samples.
func NewFakeInput(samples ...bool) *FakeInput {
	return &FakeInput{Samples: samples}
}

// Asserted returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeInput) Asserted() (bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Reset rewinds to the first sample.
func (f *FakeInput) Reset() {
	f.index = 0
	f.Reads = 0
}

// NewFakeBoard creates a Board of fakes sharing rec. The returned input
// starts with samples.
func NewFakeBoard(rec *Recorder, samples ...bool) (*Board, *FakeInput) {
	in := NewFakeInput(samples...)
	return &Board{
		Power:     NewFakeOutput("power", rec),
		Direction: NewFakeOutput("direction", rec),
		Drain:     NewFakeOutput("drain", rec),
		Inlet:     NewFakeOutput("inlet", rec),
		Status:    NewFakeOutput("status", rec),
		Level:     in,
	}, in
}
