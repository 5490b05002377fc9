package observability

import (
	"context"

	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

// LogSink writes one structured log line per span or counter.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogSink{log: log.With("component", "metrics")}
}

func (s *LogSink) RecordSpan(_ context.Context, ev SpanEvent) {
	kv := []any{
		"schema_version", SchemaVersion,
		"event", "span",
		"span", ev.Name,
		"operation", ev.Operation,
		"trace_id", ev.TraceID,
		"start", ev.Start,
		"duration_ms", ev.DurationMS,
		"status", ev.Status,
	}
	if ev.Error != "" {
		kv = append(kv, "error", ev.Error)
	}
	if len(ev.Counts) > 0 {
		kv = append(kv, "counts", ev.Counts)
	}
	if len(ev.Attrs) > 0 {
		kv = append(kv, "attrs", ev.Attrs)
	}
	if ev.Status == StatusError {
		s.log.Warn("span", kv...)
		return
	}
	s.log.Info("span", kv...)
}

func (s *LogSink) RecordCounter(_ context.Context, ev CounterEvent) {
	kv := []any{
		"schema_version", SchemaVersion,
		"event", "counter",
		"counter", ev.Name,
		"operation", ev.Operation,
		"trace_id", ev.TraceID,
		"value", ev.Value,
	}
	if len(ev.Attrs) > 0 {
		kv = append(kv, "attrs", ev.Attrs)
	}
	s.log.Info("counter", kv...)
}
