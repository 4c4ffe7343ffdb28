package engine

import (
	"log/slog"

	"github.com/roach88/treasury/internal/dao"
)

// EventSink receives committed events in seq order. Publish runs on the
// dispatcher goroutine; a panic is recovered and logged.
type EventSink interface {
	Publish(ev dao.Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ev dao.Event)

// Publish implements EventSink.
func (f SinkFunc) Publish(ev dao.Event) { f(ev) }

// MultiSink fans each event out to every sink in order.
type MultiSink []EventSink

// Publish implements EventSink.
func (m MultiSink) Publish(ev dao.Event) {
	for _, s := range m {
		s.Publish(ev)
	}
}

// LogSink writes one structured log line per event.
type LogSink struct {
	Logger *slog.Logger
}

// Publish implements EventSink.
func (s LogSink) Publish(ev dao.Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("governance event",
		"seq", ev.Seq,
		"dao", ev.DaoID,
		"kind", string(ev.Kind),
		"request_id", ev.RequestID,
		"at", ev.At,
	)
}
