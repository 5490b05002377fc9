// Package observability carries timing spans and counters out of the query
// path and the inference worker. Callers receive a Sink explicitly; there is no
// package-level recorder.
package observability

import (
	"context"
	"math"
	"time"
)

const SchemaVersion = "1.0"

const (
	StatusOK    = "ok"
	StatusError = "error"
)

type SpanEvent struct {
	Name       string
	Operation  string
	TraceID    string
	Start      time.Time
	DurationMS float64
	Status     string
	Error      string
	Counts     map[string]int
	Attrs      map[string]any
}

type CounterEvent struct {
	Name      string
	Operation string
	TraceID   string
	Value     float64
	Attrs     map[string]any
}

type Sink interface {
	RecordSpan(ctx context.Context, ev SpanEvent)
	RecordCounter(ctx context.Context, ev CounterEvent)
}

type Nop struct{}

func (Nop) RecordSpan(context.Context, SpanEvent)       {}
func (Nop) RecordCounter(context.Context, CounterEvent) {}

// Multi fans every event out to each non-nil sink in order.
type Multi []Sink

func (m Multi) RecordSpan(ctx context.Context, ev SpanEvent) {
	for _, s := range m {
		if s != nil {
			s.RecordSpan(ctx, ev)
		}
	}
}

func (m Multi) RecordCounter(ctx context.Context, ev CounterEvent) {
	for _, s := range m {
		if s != nil {
			s.RecordCounter(ctx, ev)
		}
	}
}

// OrNop returns s, or a no-op sink when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

type Span struct {
	sink   Sink
	ctx    context.Context
	ev     SpanEvent
	now    func() time.Time
	closed bool
}

// StartSpan begins a timed span that is emitted on End. attrs are key/value pairs.
func StartSpan(ctx context.Context, sink Sink, name, op, traceID string, attrs ...any) *Span {
	sp := &Span{
		sink: OrNop(sink),
		ctx:  ctx,
		now:  time.Now,
		ev: SpanEvent{
			Name:      name,
			Operation: op,
			TraceID:   traceID,
			Attrs:     kvMap(attrs),
		},
	}
	sp.ev.Start = sp.now()
	return sp
}

func (s *Span) SetCount(key string, n int) {
	if s == nil {
		return
	}
	if s.ev.Counts == nil {
		s.ev.Counts = map[string]int{}
	}
	s.ev.Counts[key] = n
}

func (s *Span) SetAttr(key string, v any) {
	if s == nil {
		return
	}
	if s.ev.Attrs == nil {
		s.ev.Attrs = map[string]any{}
	}
	s.ev.Attrs[key] = v
}

// End records the span once. A nil err means status ok.
func (s *Span) End(err error) {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	s.ev.DurationMS = roundMS(s.now().Sub(s.ev.Start))
	s.ev.Status = StatusOK
	if err != nil {
		s.ev.Status = StatusError
		s.ev.Error = err.Error()
	}
	s.sink.RecordSpan(s.ctx, s.ev)
}

// Elapsed reports the time since the span started, in milliseconds.
func (s *Span) Elapsed() float64 {
	if s == nil {
		return 0
	}
	return roundMS(s.now().Sub(s.ev.Start))
}

// Count emits a single counter event.
func Count(ctx context.Context, sink Sink, name, op, traceID string, value float64, attrs ...any) {
	OrNop(sink).RecordCounter(ctx, CounterEvent{
		Name:      name,
		Operation: op,
		TraceID:   traceID,
		Value:     value,
		Attrs:     kvMap(attrs),
	})
}

func roundMS(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}

func kvMap(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok || k == "" {
			continue
		}
		out[k] = kv[i+1]
	}
	return out
}
