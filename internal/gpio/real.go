//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// outputLine is an Output backed by a requested GPIO line.
type outputLine struct {
	line *gpiocdev.Line
}

func (o *outputLine) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set line %d: %w", o.line.Offset(), err)
	}
	return nil
}

// levelLine is the water level input: pulled up, grounded when full.
type levelLine struct {
	line *gpiocdev.Line
}

func (l *levelLine) Asserted() (bool, error) {
	raw, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("read line %d: %w", l.line.Offset(), err)
	}
	return raw == 0, nil
}

// Open requests every washer line on the named chip. Outputs start low.
func Open(chipName string, pins Pins) (*Board, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	var lines []*gpiocdev.Line
	release := func() {
		for _, l := range lines {
			l.Close()
		}
		chip.Close()
	}

	request := func(name string, offset int, opts ...gpiocdev.LineReqOption) (*gpiocdev.Line, error) {
		l, err := chip.RequestLine(offset, opts...)
		if err != nil {
			return nil, fmt.Errorf("request %s pin %d: %w", name, offset, err)
		}
		lines = append(lines, l)
		return l, nil
	}

	outputs := make(map[string]*outputLine)
	for _, np := range pins.Named() {
		if np.Name == "level" {
			continue
		}
		l, err := request(np.Name, np.Offset, gpiocdev.AsOutput(0))
		if err != nil {
			release()
			return nil, err
		}
		outputs[np.Name] = &outputLine{line: l}
	}

	level, err := request("level", pins.Level, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		release()
		return nil, err
	}

	b := &Board{
		Power:     outputs["power"],
		Direction: outputs["direction"],
		Drain:     outputs["drain"],
		Inlet:     outputs["inlet"],
		Status:    outputs["status"],
		Level:     &levelLine{line: level},
	}
	b.close = func() error { return closeLines(chip, lines) }
	return b, nil
}

// closeLines reconfigures every line to input with pull-down, the Raspberry
// Pi boot default, before releasing it. Relays stay de-energised while the
// daemon is down.
func closeLines(chip *gpiocdev.Chip, lines []*gpiocdev.Line) error {
	var errs []error
	for _, l := range lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", l.Offset(), err))
		}
	}
	if err := chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}

	return errors.Join(errs...)
}
