package observability

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordingSink struct {
	mu       sync.Mutex
	spans    []SpanEvent
	counters []CounterEvent
}

func (r *recordingSink) RecordSpan(_ context.Context, ev SpanEvent) {
	r.mu.Lock()
	r.spans = append(r.spans, ev)
	r.mu.Unlock()
}

func (r *recordingSink) RecordCounter(_ context.Context, ev CounterEvent) {
	r.mu.Lock()
	r.counters = append(r.counters, ev)
	r.mu.Unlock()
}

func TestSpanEndsOnceWithStatus(t *testing.T) {
	rec := &recordingSink{}
	sp := StartSpan(context.Background(), rec, "fetch_anchor", "query", "t-1", "anchor_id", "sku_1")
	base := sp.ev.Start
	sp.now = func() time.Time { return base.Add(1500 * time.Microsecond) }
	sp.SetCount("candidates", 3)

	sp.End(errors.New("boom"))
	sp.End(nil)

	require.Len(t, rec.spans, 1)
	ev := rec.spans[0]
	assert.Equal(t, "fetch_anchor", ev.Name)
	assert.Equal(t, "query", ev.Operation)
	assert.Equal(t, "t-1", ev.TraceID)
	assert.Equal(t, StatusError, ev.Status)
	assert.Equal(t, "boom", ev.Error)
	assert.Equal(t, 1.5, ev.DurationMS)
	assert.Equal(t, map[string]int{"candidates": 3}, ev.Counts)
	assert.Equal(t, "sku_1", ev.Attrs["anchor_id"])
}

func TestNilSinkIsSafe(t *testing.T) {
	sp := StartSpan(context.Background(), nil, "x", "query", "t")
	sp.End(nil)
	Count(context.Background(), nil, "top_k", "query", "t", 5)

	var nilSpan *Span
	nilSpan.SetCount("a", 1)
	nilSpan.End(nil)
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := Multi{a, nil, b}
	Count(context.Background(), m, "top_k", "query", "t", 10)
	StartSpan(context.Background(), m, "query_total", "query", "t").End(nil)

	for _, r := range []*recordingSink{a, b} {
		require.Len(t, r.counters, 1)
		assert.Equal(t, 10.0, r.counters[0].Value)
		require.Len(t, r.spans, 1)
		assert.Equal(t, StatusOK, r.spans[0].Status)
	}
}

func TestMetricsWritesPrometheusText(t *testing.T) {
	m := NewMetrics()
	m.RecordSpan(context.Background(), SpanEvent{
		Name: "infer_edges_total", Operation: "infer_edges", Status: StatusOK, DurationMS: 120,
		Counts: map[string]int{"edges_created": 2, "edges_reinforced": 1},
	})
	m.RecordCounter(context.Background(), CounterEvent{Name: "top_k", Operation: "query", Value: 10})
	m.ObserveAPI("GET", "/v1/query/:id", "200", 0.02)

	assert.Equal(t, 2.0, m.edges.Value("created"))
	assert.Equal(t, 1.0, m.edges.Value("reinforced"))

	var buf bytes.Buffer
	require.NoError(t, m.WritePrometheus(&buf))
	out := buf.String()
	assert.Contains(t, out, `adjacent_span_total{span="infer_edges_total",status="ok"} 1.000000`)
	assert.Contains(t, out, `adjacent_counter_total{counter="top_k",operation="query"} 10.000000`)
	assert.Contains(t, out, `adjacent_api_requests_total{method="GET",route="/v1/query/:id",status="200"} 1.000000`)
	assert.Contains(t, out, `adjacent_span_duration_seconds_bucket{span="infer_edges_total",operation="infer_edges",le="+Inf"} 1`)
}

func TestOTelSinkReplaysSpanTimestamps(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	sink := NewOTelSink(tp)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sink.RecordSpan(context.Background(), SpanEvent{
		Name: "llm_call", Operation: "infer_edges", TraceID: "t-9",
		Start: start, DurationMS: 250, Status: StatusError, Error: "rate limited",
		Counts: map[string]int{"patches": 4},
	})

	ended := rec.Ended()
	require.Len(t, ended, 1)
	s := ended[0]
	assert.Equal(t, "llm_call", s.Name())
	assert.Equal(t, start, s.StartTime())
	assert.Equal(t, start.Add(250*time.Millisecond), s.EndTime())
	assert.Equal(t, codes.Error, s.Status().Code)
}
