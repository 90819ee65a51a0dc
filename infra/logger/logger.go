// Package logger builds the zerolog-backed loggers handed to every component.
// Output is structured JSON by default; setting APP_ENV=dev switches to the
// human-readable console writer for plant-floor debugging.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	corelogger "github.com/Sukarth/wastewater-optimization/core/logger"
)

// Logger is the interface the core packages log through.
type Logger = corelogger.Logger

// NopLogger re-exports the core no-op logger for tests.
type NopLogger = corelogger.NopLogger

// New returns a logger tagging every line with the component name.
func New(component string) Logger {
	z := zerolog.New(output()).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &zlog{z: z}
}

func output() io.Writer {
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return os.Stdout
}

type zlog struct {
	z zerolog.Logger
}

func (l *zlog) Debugf(format string, args ...any) { l.z.Debug().Msgf(format, args...) }
func (l *zlog) Infof(format string, args ...any)  { l.z.Info().Msgf(format, args...) }
func (l *zlog) Warnf(format string, args ...any)  { l.z.Warn().Msgf(format, args...) }
func (l *zlog) Errorf(format string, args ...any) { l.z.Error().Msgf(format, args...) }

func (l *zlog) Debugw(msg string, fields map[string]any) {
	ev := l.z.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
