package logger

// Logger exposes logging methods for common severity levels.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards everything. Components fall back to it when no logger
// is injected.
type NopLogger struct{}

func (*NopLogger) Debugf(string, ...any)         {}
func (*NopLogger) Debugw(string, map[string]any) {}
func (*NopLogger) Infof(string, ...any)          {}
func (*NopLogger) Warnf(string, ...any)          {}
func (*NopLogger) Errorf(string, ...any)         {}
