package audit

import (
	"context"

	"github.com/platinummonkey/strata/pkg/observability"
)

// Emitter delivers audit events to a sink. Delivery is fire-and-forget from
// the resolver's perspective: an Emit error is logged by the caller and
// never fails a resolution.
type Emitter interface {
	// Emit delivers one event.
	Emit(ctx context.Context, event *Event) error

	// Close flushes and releases the sink.
	Close() error
}

// NopEmitter discards all events.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, *Event) error { return nil }
func (NopEmitter) Close() error                       { return nil }

// LogEmitter writes events to the structured log. It is the default sink
// when no database or Redis sink is configured.
type LogEmitter struct {
	logger *observability.Logger
}

// NewLogEmitter creates a log-backed emitter.
func NewLogEmitter(logger *observability.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

func (l *LogEmitter) Emit(_ context.Context, event *Event) error {
	l.logger.WithFields(map[string]interface{}{
		"audit_id":    event.ID,
		"actor":       event.Actor,
		"key":         event.Key,
		"tier":        string(event.Tier),
		"value":       event.SanitizedValue,
		"source":      string(event.Source),
		"success":     event.Success,
		"environment": event.Environment,
		"timestamp":   event.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
	}).Info("config access")
	return nil
}

func (l *LogEmitter) Close() error { return nil }

// MultiEmitter fans events out to several sinks. Emit returns the first
// error encountered but still attempts every sink.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter combines emitters into one.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

func (m *MultiEmitter) Emit(ctx context.Context, event *Event) error {
	var firstErr error
	for _, e := range m.emitters {
		if err := e.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MultiEmitter) Close() error {
	var firstErr error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
