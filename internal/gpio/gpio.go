// Package gpio provides the washer's hardware boundary: binary outputs for
// the actuators and the status LED, and the water level input.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "errors"

// Output drives a single digital output line.
type Output interface {
	// Set drives the line high (on) or low (off).
	Set(on bool) error
}

// Input reads a single digital input line.
type Input interface {
	// Asserted reports whether the input is in its active state.
	// For the water level sensor the line is pulled up and the sensor
	// grounds it when the tub is full, so raw low = asserted.
	Asserted() (bool, error)
}

// Default chip and pin assignments (BCM numbering).
const (
	DefaultChip         = "gpiochip0"
	DefaultPinPower     = 17
	DefaultPinDirection = 27
	DefaultPinDrain     = 22
	DefaultPinInlet     = 23
	DefaultPinLevel     = 24
	DefaultPinStatus    = 25
)

// Pins holds the line offsets used by the washer.
type Pins struct {
	Power     int
	Direction int
	Drain     int
	Inlet     int
	Level     int
	Status    int
}

// DefaultPins returns the default pin assignment.
func DefaultPins() Pins {
	return Pins{
		Power:     DefaultPinPower,
		Direction: DefaultPinDirection,
		Drain:     DefaultPinDrain,
		Inlet:     DefaultPinInlet,
		Level:     DefaultPinLevel,
		Status:    DefaultPinStatus,
	}
}

// Named returns the pins keyed by role, in a stable order.
func (p Pins) Named() []NamedPin {
	return []NamedPin{
		{"power", p.Power},
		{"direction", p.Direction},
		{"drain", p.Drain},
		{"inlet", p.Inlet},
		{"level", p.Level},
		{"status", p.Status},
	}
}

// NamedPin pairs a role with its line offset.
type NamedPin struct {
	Name   string
	Offset int
}

// Board bundles every handle the washer needs.
type Board struct {
	Power     Output
	Direction Output
	Drain     Output
	Inlet     Output
	Status    Output
	Level     Input

	close func() error
}

// Close releases the hardware behind the board. Safe to call on a board
// without hardware.
func (b *Board) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// ErrNotSupported is returned by Open on platforms without GPIO character devices.
var ErrNotSupported = errors.New("gpio: not supported on this platform (requires Linux)")
