package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/washer-sequencer/internal/gpio"
	"github.com/sweeney/washer-sequencer/internal/sequencer"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, gpio.DefaultChip, cfg.Chip)
	assert.Equal(t, gpio.DefaultPins(), cfg.Pins())
	assert.Equal(t, sequencer.DefaultFillTimeout, cfg.FillTimeout)
	assert.Equal(t, sequencer.DefaultPollInterval, cfg.Poll)
	assert.Equal(t, sequencer.HeartbeatPeriod, cfg.Heartbeat)
	assert.Equal(t, ":80", cfg.HTTP)
	assert.Equal(t, "", cfg.Statsd)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.PrintState)
}

func TestOverrides(t *testing.T) {
	cfg, err := Load([]string{
		"--chip", "gpiochip4",
		"--pin-inlet", "5",
		"--fill-timeout", "0",
		"--poll", "50ms",
		"--broker", "",
		"--statsd", "127.0.0.1:8125",
		"--print-state",
	})
	require.NoError(t, err)

	assert.Equal(t, "gpiochip4", cfg.Chip)
	assert.Equal(t, 5, cfg.PinInlet)
	assert.Equal(t, time.Duration(0), cfg.FillTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Poll)
	assert.Equal(t, "", cfg.Broker)
	assert.Equal(t, "127.0.0.1:8125", cfg.Statsd)
	assert.True(t, cfg.PrintState)
}

func TestDuplicatePinRejected(t *testing.T) {
	_, err := Load([]string{"--pin-level", "17"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level")
	assert.Contains(t, err.Error(), "power")
}

func TestInvalidValues(t *testing.T) {
	cases := map[string][]string{
		"negative pin":          {"--pin-status", "-1"},
		"zero poll":             {"--poll", "0"},
		"negative fill timeout": {"--fill-timeout", "-1s"},
		"negative heartbeat":    {"--heartbeat", "-5s"},
		"empty chip":            {"--chip", ""},
		"unknown flag":          {"--spin-speed", "1400"},
		"bad duration":          {"--poll", "soon"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(args)
			assert.Error(t, err)
		})
	}
}

func TestHelp(t *testing.T) {
	_, err := Load([]string{"--help"})
	assert.ErrorIs(t, err, ErrHelp)
}

func TestStatusConfig(t *testing.T) {
	cfg, err := Load([]string{"--http", ":8080", "--heartbeat", "500ms"})
	require.NoError(t, err)

	sc := cfg.Status()
	assert.Equal(t, "gpiochip0", sc.Chip)
	assert.Equal(t, int64(900000), sc.FillTimeoutMs)
	assert.Equal(t, int64(10), sc.PollMs)
	assert.Equal(t, int64(500), sc.HeartbeatMs)
	assert.Equal(t, ":8080", sc.HTTPAddr)
}
