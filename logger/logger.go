// Package logger sets up structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Level is a zerolog level name; Debug overrides it.
	Level string
	Debug bool
	// Console switches to human readable output instead of JSON lines.
	Console bool
	// Output defaults to stderr.
	Output io.Writer
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// Init replaces the global logger used by log and WithComponent.
func Init(config Config) error {
	level := zerolog.InfoLevel
	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error
		if level, err = zerolog.ParseLevel(config.Level); err != nil {
			return err
		}
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	if config.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

// WithComponent returns a child of the global logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() zerolog.Logger {
	return zerolog.Nop()
}
