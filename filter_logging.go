package state

import "time"

// FilterLogEvent describes one expression-filter evaluation for logging.
type FilterLogEvent struct {
	Engine   string
	Expr     string
	Path     string
	Matched  bool
	Duration time.Duration
	Err      error
}

// FilterLogger records expression-filter events. Evaluation errors inside
// Match are only observable here: the Filter contract has no error return,
// so a failed evaluation counts as "no match" and is reported to the
// logger.
type FilterLogger interface {
	LogFilter(FilterLogEvent)
}

// FilterLoggerFunc adapts a function to FilterLogger.
type FilterLoggerFunc func(FilterLogEvent)

// LogFilter implements FilterLogger.
func (f FilterLoggerFunc) LogFilter(event FilterLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopFilterLogger struct{}

func (noopFilterLogger) LogFilter(FilterLogEvent) {}
