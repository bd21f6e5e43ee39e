package rosslar

import (
	"context"
	"log/slog"
	"time"
)

// Source tags where a diagnostic came from.
type Source string

const (
	SourceRead    Source = "Read"
	SourceWrite   Source = "Write"
	SourceTimeout Source = "Timeout"
	SourceError   Source = "Error"
)

// Diagnostic is one observation of the link. Diagnostics never affect the
// protocol.
type Diagnostic struct {
	Time   time.Time
	Source Source
	Text   string
}

// Sink consumes diagnostics. Implementations must be safe for concurrent
// use and must not block for long.
type Sink interface {
	Diagnose(Diagnostic)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Diagnostic)

func (f SinkFunc) Diagnose(d Diagnostic) { f(d) }

// ChanSink delivers diagnostics to a buffered channel. When the channel
// is full the diagnostic is dropped.
type ChanSink chan Diagnostic

func (c ChanSink) Diagnose(d Diagnostic) {
	select {
	case c <- d:
	default:
	}
}

// LogSink writes diagnostics to l at info level.
func LogSink(l *slog.Logger) Sink {
	return SinkFunc(func(d Diagnostic) {
		l.LogAttrs(context.Background(), slog.LevelInfo, d.Text,
			slog.String("source", string(d.Source)),
			slog.Time("at", d.Time))
	})
}

// Tee sends each diagnostic to every non-nil sink.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(d Diagnostic) {
		for _, s := range sinks {
			if s != nil {
				s.Diagnose(d)
			}
		}
	})
}
