package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreLogger(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
}

func TestInitWritesConsoleAndFile(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "washer.log")
	var console bytes.Buffer

	closeFn, err := initWriters(zerolog.InfoLevel, path, &console)
	require.NoError(t, err)

	log.Info().Str("phase", "wash").Msg("phase started")
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), `"phase":"wash"`)
	assert.Contains(t, console.String(), `"message":"phase started"`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"phase started"`)
}

func TestInitFiltersBelowLevel(t *testing.T) {
	restoreLogger(t)
	var console bytes.Buffer

	_, err := initWriters(zerolog.WarnLevel, "", &console)
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestInitBadPath(t *testing.T) {
	restoreLogger(t)
	_, err := initWriters(zerolog.InfoLevel, filepath.Join(t.TempDir(), "missing", "x.log"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, l)

	l, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
