package collab

import "log/slog"

// SlogLogger adapts an *slog.Logger to the Logger collaborator, the way
// the teacher wires slog into its engine and CLI commands.
type SlogLogger struct {
	L *slog.Logger
}

// NewSlogLogger wraps l, or slog.Default() if l is nil.
func NewSlogLogger(l *slog.Logger) SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return SlogLogger{L: l}
}

func (s SlogLogger) Log(message string, args ...any) {
	s.L.Debug(message, args...)
}

func (s SlogLogger) ReportError(err error) {
	if err == nil {
		return
	}
	s.L.Error(err.Error())
}
