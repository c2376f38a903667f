// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init installs a logger at level writing to stderr and, when path is
// non-empty, appending to the file at path. The returned func closes the
// file.
func Init(level zerolog.Level, path string) (func() error, error) {
	return initWriters(level, path, os.Stderr)
}

func initWriters(level zerolog.Level, path string, console io.Writer) (func() error, error) {
	writers := []io.Writer{console}
	closeFn := func() error { return nil }

	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closeFn = f.Close
	}

	multi := zerolog.MultiLevelWriter(writers...)
	log.Logger = zerolog.New(multi).Level(level).With().Timestamp().Logger()

	if level == zerolog.DebugLevel {
		log.Debug().Msg("Log level set to DEBUG")
	}
	return closeFn, nil
}

// ParseLevel maps a level name such as "info" or "debug" to a zerolog level.
// An empty name means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level %q: %w", s, err)
	}
	return l, nil
}
