package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/abdelatifsd/Adjacent"

// OTelSink replays finished spans into the configured tracer provider with their
// original timestamps, so they appear as children of any active request span.
type OTelSink struct {
	tracer trace.Tracer
}

func NewOTelSink(tp trace.TracerProvider) *OTelSink {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &OTelSink{tracer: tp.Tracer(tracerName)}
}

func (s *OTelSink) RecordSpan(ctx context.Context, ev SpanEvent) {
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := []attribute.KeyValue{
		attribute.String("adjacent.operation", ev.Operation),
		attribute.String("adjacent.trace_id", ev.TraceID),
		attribute.Float64("adjacent.duration_ms", ev.DurationMS),
	}
	for k, v := range ev.Counts {
		attrs = append(attrs, attribute.Int("adjacent.count."+k, v))
	}
	for k, v := range ev.Attrs {
		attrs = append(attrs, toAttr("adjacent."+k, v))
	}

	_, span := s.tracer.Start(ctx, ev.Name,
		trace.WithTimestamp(ev.Start),
		trace.WithAttributes(attrs...),
	)
	if ev.Status == StatusError {
		span.SetStatus(codes.Error, ev.Error)
	}
	end := ev.Start.Add(time.Duration(ev.DurationMS * float64(time.Millisecond)))
	span.End(trace.WithTimestamp(end))
}

func (s *OTelSink) RecordCounter(ctx context.Context, ev CounterEvent) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("counter", ev.Name),
		attribute.Float64("value", ev.Value),
	}
	for k, v := range ev.Attrs {
		attrs = append(attrs, toAttr(k, v))
	}
	span.AddEvent("counter", trace.WithAttributes(attrs...))
}

func toAttr(key string, v any) attribute.KeyValue {
	switch x := v.(type) {
	case string:
		return attribute.String(key, x)
	case bool:
		return attribute.Bool(key, x)
	case int:
		return attribute.Int(key, x)
	case int64:
		return attribute.Int64(key, x)
	case float64:
		return attribute.Float64(key, x)
	case []string:
		return attribute.StringSlice(key, x)
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
