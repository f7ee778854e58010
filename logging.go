package casefile

import "time"

// LogEvent describes one engine operation for logging.
type LogEvent struct {
	Op       string
	FieldID  string
	Path     string
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
	Message  string
}

// Logger records engine events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}
