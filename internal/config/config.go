// Package config parses the washer's command line.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/sweeney/washer-sequencer/internal/gpio"
	"github.com/sweeney/washer-sequencer/internal/status"
)

// Config holds every runtime setting. Wash program timings are compiled in
// and are not configurable.
type Config struct {
	Chip         string `long:"chip" description:"GPIO character device name" default:"gpiochip0"`
	PinPower     int    `long:"pin-power" description:"Line offset for the motor power relay" default:"17"`
	PinDirection int    `long:"pin-direction" description:"Line offset for the motor direction relay" default:"27"`
	PinDrain     int    `long:"pin-drain" description:"Line offset for the drain pump" default:"22"`
	PinInlet     int    `long:"pin-inlet" description:"Line offset for the water inlet valve" default:"23"`
	PinLevel     int    `long:"pin-level" description:"Line offset for the water level sensor" default:"24"`
	PinStatus    int    `long:"pin-status" description:"Line offset for the status LED" default:"25"`

	FillTimeout time.Duration `long:"fill-timeout" description:"Give up filling after this long (0 waits forever)" default:"15m"`
	Poll        time.Duration `long:"poll" description:"Water level polling interval" default:"10ms"`
	Heartbeat   time.Duration `long:"heartbeat" description:"Status LED toggle period after completion (0 to disable)" default:"1s"`

	Broker string `long:"broker" description:"MQTT broker address (empty to disable)" default:"tcp://192.168.1.200:1883"`
	HTTP   string `long:"http" description:"HTTP status address (empty to disable)" default:":80"`
	Statsd string `long:"statsd" description:"DogStatsD address (empty to disable)"`

	LogLevel string `long:"log-level" description:"Log level (debug, info, warn, error)" default:"info"`
	LogFile  string `long:"log-file" description:"Also append logs to this file"`

	PrintState bool `long:"print-state" description:"Print the water level sensor state and exit"`
}

// ErrHelp is returned by Load when usage was requested and printed.
var ErrHelp = errors.New("help requested")

// Load parses args (without the program name) and validates the result.
func Load(args []string) (Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return cfg, ErrHelp
		}
		return cfg, fmt.Errorf("parse arguments: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects pin clashes and out of range durations.
func (c Config) Validate() error {
	seen := make(map[int]string)
	for _, p := range c.Pins().Named() {
		if p.Offset < 0 {
			return fmt.Errorf("pin %s: negative offset %d", p.Name, p.Offset)
		}
		if other, ok := seen[p.Offset]; ok {
			return fmt.Errorf("pin %s: offset %d already used by %s", p.Name, p.Offset, other)
		}
		seen[p.Offset] = p.Name
	}

	if c.Chip == "" {
		return errors.New("chip must not be empty")
	}
	if c.Poll <= 0 {
		return fmt.Errorf("poll must be positive, got %v", c.Poll)
	}
	if c.FillTimeout < 0 {
		return fmt.Errorf("fill-timeout must not be negative, got %v", c.FillTimeout)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat)
	}
	return nil
}

// Pins returns the configured line offsets.
func (c Config) Pins() gpio.Pins {
	return gpio.Pins{
		Power:     c.PinPower,
		Direction: c.PinDirection,
		Drain:     c.PinDrain,
		Inlet:     c.PinInlet,
		Level:     c.PinLevel,
		Status:    c.PinStatus,
	}
}

// Status returns the settings reported by the status page and events.
func (c Config) Status() status.Config {
	return status.Config{
		Chip:          c.Chip,
		FillTimeoutMs: c.FillTimeout.Milliseconds(),
		PollMs:        c.Poll.Milliseconds(),
		HeartbeatMs:   c.Heartbeat.Milliseconds(),
		Broker:        c.Broker,
		HTTPAddr:      c.HTTP,
		StatsdAddr:    c.Statsd,
	}
}
